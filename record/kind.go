// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

import (
	"fmt"
)

// Kind is the relocation record type tag.
type Kind uint8

const (
	ConstantPool Kind = iota
	HelperAddress
	RelativeMethodAddress
	AbsoluteMethodAddress
	DataAddress
	ClassObject
	MethodObject
	InterfaceObject
	AbsoluteHelperAddress
	FixedSequenceAddress
	FixedSequenceAddress2
	JNIVirtualTargetAddress
	JNIStaticTargetAddress
	ArrayCopyHelper
	ArrayCopyToc
	BodyInfoAddress
	Thunks
	StaticRamMethodConst
	Trampolines
	PicTrampolines
	CheckMethodEnter
	RamMethod
	RamMethodSequence
	RamMethodSequenceReg
	VerifyClassObjectForAlloc
	ConstantPoolOrderedPair
	AbsoluteMethodAddressOrderedPair
	VerifyRefArrayForAlloc
	J2IThunks
	GlobalValue
	BodyInfoAddressLoad
	ValidateInstanceField
	InlinedStaticMethodWithNopGuard
	InlinedSpecialMethodWithNopGuard
	InlinedVirtualMethodWithNopGuard
	InlinedInterfaceMethodWithNopGuard
	SpecialRamMethodConst
	InlinedHCRMethod
	ValidateStaticField
	ValidateClass
	ClassAddress
	HCR
	ProfiledMethodGuard
	ProfiledClassGuard
	HierarchyGuard
	AbstractGuard
	ProfiledInlinedMethod
	MethodPointer
	ClassPointer
	CheckMethodExit
	ValidateArbitraryClass
	EmitClass
	JNISpecialTargetAddress
	VirtualRamMethodConst
	InlinedInterfaceMethod
	InlinedVirtualMethod
	NativeMethodAbsolute
	NativeMethodRelative
	ArbitraryClassAddress
	DebugCounter
	ClassUnloadAssumption
	J2IVirtualThunkPointer
	InlinedAbstractMethodWithNopGuard
	ValidateClassByName
	ValidateProfiledClass
	ValidateClassFromCP
	ValidateDefiningClassFromCP
	ValidateStaticClassFromCP
	ValidateArrayClassFromComponentClass
	ValidateSuperClassFromClass
	ValidateClassInstanceOfClass
	ValidateSystemClassByName
	ValidateClassFromITableIndexCP
	ValidateDeclaringClassFromFieldOrStatic
	ValidateConcreteSubClassFromClass
	ValidateClassChain
	ValidateMethodFromClass
	ValidateStaticMethodFromCP
	ValidateSpecialMethodFromCP
	ValidateVirtualMethodFromCP
	ValidateVirtualMethodFromOffset
	ValidateInterfaceMethodFromCP
	ValidateMethodFromClassAndSig
	ValidateStackWalkerMaySkipFrames
	ValidateClassInfoIsInitialized
	ValidateMethodFromSingleImplementer
	ValidateMethodFromSingleInterfaceImplementer
	ValidateMethodFromSingleAbstractImplementer
	ValidateImproperInterfaceMethodFromCP
	SymbolFromManager
	MethodCallAddress
	DiscontiguousSymbolFromManager
	ResolvedTrampolines
	BlockFrequency
	RecompQueuedFlag
	InlinedStaticMethod
	InlinedSpecialMethod
	InlinedAbstractMethod
	Breakpoint
	InlinedMethodPointer
	ValidateJ2IThunkFromMethod
	StartPC
	CatchBlockCounter
	ValidateComponentClassFromArrayClass

	NumKinds
)

// Family groups kinds with the same application behavior.
type Family uint8

const (
	FamilyAddress Family = iota
	FamilyConstantPool
	FamilyGuard
	FamilyValidation
	FamilyPointer
	FamilyMeta
)

var familyNames = [...]string{
	FamilyAddress:      "address",
	FamilyConstantPool: "constant pool",
	FamilyGuard:        "guard",
	FamilyValidation:   "validation",
	FamilyPointer:      "pointer",
	FamilyMeta:         "meta",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("<invalid family %d>", uint8(f))
}

type kindInfo struct {
	name   string
	family Family
	shape  func() Record
}

func blank() Record                  { return new(Blank) }
func helper() Record                 { return new(Helper) }
func globalValue() Record            { return new(Global) }
func constantPool() Record           { return new(Pool) }
func cpEntry() Record                { return new(PoolEntry) }
func dataAddress() Record            { return new(Data) }
func allocCheck() Record             { return new(AllocCheck) }
func validateClass() Record          { return new(ValidateClassEntry) }
func arbitraryClass() Record         { return new(ArbitraryClass) }
func inlinedMethod() Record          { return new(InlinedMethod) }
func profiledGuard() Record          { return new(ProfiledGuard) }
func destination() Record            { return new(Destination) }
func breakpoint() Record             { return new(BreakpointGuard) }
func classPointer() Record           { return new(ClassPtr) }
func methodPointer() Record          { return new(MethodPtr) }
func sitePointer() Record            { return new(SitePtr) }
func picTrampolines() Record         { return new(PICTrampolines) }
func debugCounter() Record           { return new(Counter) }
func symbol() Record                 { return new(Symbol) }
func methodCall() Record             { return new(MethodCall) }
func resolvedTrampoline() Record     { return new(ResolvedTrampoline) }
func blockFrequency() Record         { return new(Frequency) }
func classByName() Record            { return new(ClassByName) }
func profiledClass() Record          { return new(ProfiledClass) }
func classFromCP() Record            { return new(ClassFromCP) }
func definingClassFromCP() Record    { return new(DefiningClassFromCP) }
func classFromClass() Record         { return new(ClassFromClass) }
func instanceOf() Record             { return new(InstanceOf) }
func systemClassByName() Record      { return new(SystemClassByName) }
func classChain() Record             { return new(ClassChain) }
func methodFromClass() Record        { return new(MethodFromClass) }
func methodFromCP() Record           { return new(MethodFromCP) }
func virtualFromOffset() Record      { return new(VirtualMethodFromOffset) }
func interfaceFromCP() Record        { return new(InterfaceMethodFromCP) }
func methodFromClassAndSig() Record  { return new(MethodFromClassAndSig) }
func stackWalker() Record            { return new(StackWalker) }
func classInfoInitialized() Record   { return new(ClassInfoIsInitialized) }
func singleImplementer() Record      { return new(SingleImplementer) }
func singleIfaceImplementer() Record { return new(SingleInterfaceImplementer) }
func j2iThunkFromMethod() Record     { return new(J2IThunkFromMethod) }

var kinds = [NumKinds]kindInfo{
	ConstantPool:                                 {"ConstantPool", FamilyConstantPool, constantPool},
	HelperAddress:                                {"HelperAddress", FamilyAddress, helper},
	RelativeMethodAddress:                        {"RelativeMethodAddress", FamilyAddress, blank},
	AbsoluteMethodAddress:                        {"AbsoluteMethodAddress", FamilyAddress, blank},
	DataAddress:                                  {"DataAddress", FamilyConstantPool, dataAddress},
	ClassObject:                                  {"ClassObject", FamilyConstantPool, cpEntry},
	MethodObject:                                 {"MethodObject", FamilyConstantPool, cpEntry},
	InterfaceObject:                              {"InterfaceObject", FamilyConstantPool, cpEntry},
	AbsoluteHelperAddress:                        {"AbsoluteHelperAddress", FamilyAddress, helper},
	FixedSequenceAddress:                         {"FixedSequenceAddress", FamilyAddress, blank},
	FixedSequenceAddress2:                        {"FixedSequenceAddress2", FamilyAddress, blank},
	JNIVirtualTargetAddress:                      {"JNIVirtualTargetAddress", FamilyConstantPool, cpEntry},
	JNIStaticTargetAddress:                       {"JNIStaticTargetAddress", FamilyConstantPool, cpEntry},
	ArrayCopyHelper:                              {"ArrayCopyHelper", FamilyAddress, blank},
	ArrayCopyToc:                                 {"ArrayCopyToc", FamilyAddress, blank},
	BodyInfoAddress:                              {"BodyInfoAddress", FamilyAddress, blank},
	Thunks:                                       {"Thunks", FamilyAddress, cpEntry},
	StaticRamMethodConst:                         {"StaticRamMethodConst", FamilyConstantPool, cpEntry},
	Trampolines:                                  {"Trampolines", FamilyAddress, cpEntry},
	PicTrampolines:                               {"PicTrampolines", FamilyMeta, picTrampolines},
	CheckMethodEnter:                             {"CheckMethodEnter", FamilyMeta, destination},
	RamMethod:                                    {"RamMethod", FamilyAddress, blank},
	RamMethodSequence:                            {"RamMethodSequence", FamilyAddress, blank},
	RamMethodSequenceReg:                         {"RamMethodSequenceReg", FamilyAddress, blank},
	VerifyClassObjectForAlloc:                    {"VerifyClassObjectForAlloc", FamilyConstantPool, allocCheck},
	ConstantPoolOrderedPair:                      {"ConstantPoolOrderedPair", FamilyConstantPool, constantPool},
	AbsoluteMethodAddressOrderedPair:             {"AbsoluteMethodAddressOrderedPair", FamilyAddress, blank},
	VerifyRefArrayForAlloc:                       {"VerifyRefArrayForAlloc", FamilyConstantPool, allocCheck},
	J2IThunks:                                    {"J2IThunks", FamilyAddress, cpEntry},
	GlobalValue:                                  {"GlobalValue", FamilyAddress, globalValue},
	BodyInfoAddressLoad:                          {"BodyInfoAddressLoad", FamilyAddress, blank},
	ValidateInstanceField:                        {"ValidateInstanceField", FamilyValidation, validateClass},
	InlinedStaticMethodWithNopGuard:              {"InlinedStaticMethodWithNopGuard", FamilyGuard, inlinedMethod},
	InlinedSpecialMethodWithNopGuard:             {"InlinedSpecialMethodWithNopGuard", FamilyGuard, inlinedMethod},
	InlinedVirtualMethodWithNopGuard:             {"InlinedVirtualMethodWithNopGuard", FamilyGuard, inlinedMethod},
	InlinedInterfaceMethodWithNopGuard:           {"InlinedInterfaceMethodWithNopGuard", FamilyGuard, inlinedMethod},
	SpecialRamMethodConst:                        {"SpecialRamMethodConst", FamilyConstantPool, cpEntry},
	InlinedHCRMethod:                             {"InlinedHCRMethod", FamilyGuard, inlinedMethod},
	ValidateStaticField:                          {"ValidateStaticField", FamilyValidation, validateClass},
	ValidateClass:                                {"ValidateClass", FamilyValidation, validateClass},
	ClassAddress:                                 {"ClassAddress", FamilyConstantPool, cpEntry},
	HCR:                                          {"HCR", FamilyMeta, blank},
	ProfiledMethodGuard:                          {"ProfiledMethodGuard", FamilyGuard, profiledGuard},
	ProfiledClassGuard:                           {"ProfiledClassGuard", FamilyGuard, profiledGuard},
	HierarchyGuard:                               {"HierarchyGuard", FamilyGuard, inlinedMethod},
	AbstractGuard:                                {"AbstractGuard", FamilyGuard, inlinedMethod},
	ProfiledInlinedMethod:                        {"ProfiledInlinedMethod", FamilyGuard, profiledGuard},
	MethodPointer:                                {"MethodPointer", FamilyPointer, methodPointer},
	ClassPointer:                                 {"ClassPointer", FamilyPointer, classPointer},
	CheckMethodExit:                              {"CheckMethodExit", FamilyMeta, destination},
	ValidateArbitraryClass:                       {"ValidateArbitraryClass", FamilyValidation, arbitraryClass},
	EmitClass:                                    {"EmitClass", FamilyPointer, classPointer},
	JNISpecialTargetAddress:                      {"JNISpecialTargetAddress", FamilyConstantPool, cpEntry},
	VirtualRamMethodConst:                        {"VirtualRamMethodConst", FamilyConstantPool, cpEntry},
	InlinedInterfaceMethod:                       {"InlinedInterfaceMethod", FamilyGuard, inlinedMethod},
	InlinedVirtualMethod:                         {"InlinedVirtualMethod", FamilyGuard, inlinedMethod},
	NativeMethodAbsolute:                         {"NativeMethodAbsolute", FamilyAddress, blank},
	NativeMethodRelative:                         {"NativeMethodRelative", FamilyAddress, blank},
	ArbitraryClassAddress:                        {"ArbitraryClassAddress", FamilyPointer, classPointer},
	DebugCounter:                                 {"DebugCounter", FamilyMeta, debugCounter},
	ClassUnloadAssumption:                        {"ClassUnloadAssumption", FamilyMeta, blank},
	J2IVirtualThunkPointer:                       {"J2IVirtualThunkPointer", FamilyAddress, cpEntry},
	InlinedAbstractMethodWithNopGuard:            {"InlinedAbstractMethodWithNopGuard", FamilyGuard, inlinedMethod},
	ValidateClassByName:                          {"ValidateClassByName", FamilyValidation, classByName},
	ValidateProfiledClass:                        {"ValidateProfiledClass", FamilyValidation, profiledClass},
	ValidateClassFromCP:                          {"ValidateClassFromCP", FamilyValidation, classFromCP},
	ValidateDefiningClassFromCP:                  {"ValidateDefiningClassFromCP", FamilyValidation, definingClassFromCP},
	ValidateStaticClassFromCP:                    {"ValidateStaticClassFromCP", FamilyValidation, classFromCP},
	ValidateArrayClassFromComponentClass:         {"ValidateArrayClassFromComponentClass", FamilyValidation, classFromClass},
	ValidateSuperClassFromClass:                  {"ValidateSuperClassFromClass", FamilyValidation, classFromClass},
	ValidateClassInstanceOfClass:                 {"ValidateClassInstanceOfClass", FamilyValidation, instanceOf},
	ValidateSystemClassByName:                    {"ValidateSystemClassByName", FamilyValidation, systemClassByName},
	ValidateClassFromITableIndexCP:               {"ValidateClassFromITableIndexCP", FamilyValidation, classFromCP},
	ValidateDeclaringClassFromFieldOrStatic:      {"ValidateDeclaringClassFromFieldOrStatic", FamilyValidation, classFromCP},
	ValidateConcreteSubClassFromClass:            {"ValidateConcreteSubClassFromClass", FamilyValidation, classFromClass},
	ValidateClassChain:                           {"ValidateClassChain", FamilyValidation, classChain},
	ValidateMethodFromClass:                      {"ValidateMethodFromClass", FamilyValidation, methodFromClass},
	ValidateStaticMethodFromCP:                   {"ValidateStaticMethodFromCP", FamilyValidation, methodFromCP},
	ValidateSpecialMethodFromCP:                  {"ValidateSpecialMethodFromCP", FamilyValidation, methodFromCP},
	ValidateVirtualMethodFromCP:                  {"ValidateVirtualMethodFromCP", FamilyValidation, methodFromCP},
	ValidateVirtualMethodFromOffset:              {"ValidateVirtualMethodFromOffset", FamilyValidation, virtualFromOffset},
	ValidateInterfaceMethodFromCP:                {"ValidateInterfaceMethodFromCP", FamilyValidation, interfaceFromCP},
	ValidateMethodFromClassAndSig:                {"ValidateMethodFromClassAndSig", FamilyValidation, methodFromClassAndSig},
	ValidateStackWalkerMaySkipFrames:             {"ValidateStackWalkerMaySkipFrames", FamilyValidation, stackWalker},
	ValidateClassInfoIsInitialized:               {"ValidateClassInfoIsInitialized", FamilyValidation, classInfoInitialized},
	ValidateMethodFromSingleImplementer:          {"ValidateMethodFromSingleImplementer", FamilyValidation, singleImplementer},
	ValidateMethodFromSingleInterfaceImplementer: {"ValidateMethodFromSingleInterfaceImplementer", FamilyValidation, singleIfaceImplementer},
	ValidateMethodFromSingleAbstractImplementer:  {"ValidateMethodFromSingleAbstractImplementer", FamilyValidation, singleImplementer},
	ValidateImproperInterfaceMethodFromCP:        {"ValidateImproperInterfaceMethodFromCP", FamilyValidation, methodFromCP},
	SymbolFromManager:                            {"SymbolFromManager", FamilyMeta, symbol},
	MethodCallAddress:                            {"MethodCallAddress", FamilyAddress, methodCall},
	DiscontiguousSymbolFromManager:               {"DiscontiguousSymbolFromManager", FamilyMeta, symbol},
	ResolvedTrampolines:                          {"ResolvedTrampolines", FamilyAddress, resolvedTrampoline},
	BlockFrequency:                               {"BlockFrequency", FamilyAddress, blockFrequency},
	RecompQueuedFlag:                             {"RecompQueuedFlag", FamilyAddress, blank},
	InlinedStaticMethod:                          {"InlinedStaticMethod", FamilyGuard, inlinedMethod},
	InlinedSpecialMethod:                         {"InlinedSpecialMethod", FamilyGuard, inlinedMethod},
	InlinedAbstractMethod:                        {"InlinedAbstractMethod", FamilyGuard, inlinedMethod},
	Breakpoint:                                   {"Breakpoint", FamilyGuard, breakpoint},
	InlinedMethodPointer:                         {"InlinedMethodPointer", FamilyPointer, sitePointer},
	ValidateJ2IThunkFromMethod:                   {"ValidateJ2IThunkFromMethod", FamilyValidation, j2iThunkFromMethod},
	StartPC:                                      {"StartPC", FamilyAddress, blank},
	CatchBlockCounter:                            {"CatchBlockCounter", FamilyAddress, blank},
	ValidateComponentClassFromArrayClass:         {"ValidateComponentClassFromArrayClass", FamilyValidation, classFromClass},
}

func (k Kind) Valid() bool {
	return k < NumKinds
}

func (k Kind) String() string {
	if k.Valid() {
		return kinds[k].name
	}
	return fmt.Sprintf("<unknown relocation kind %d>", uint8(k))
}

// ParseKind looks up a kind by name.
func ParseKind(name string) (Kind, bool) {
	for k := Kind(0); k < NumKinds; k++ {
		if kinds[k].name == name {
			return k, true
		}
	}
	return 0, false
}

// Family panics if the kind is invalid.
func (k Kind) Family() Family {
	return kinds[k].family
}

// HasDestination reports whether the payload carries a guard destination.
func (k Kind) HasDestination() bool {
	switch k {
	case InlinedStaticMethodWithNopGuard, InlinedSpecialMethodWithNopGuard, InlinedVirtualMethodWithNopGuard,
		InlinedInterfaceMethodWithNopGuard, InlinedAbstractMethodWithNopGuard, InlinedHCRMethod,
		HierarchyGuard, AbstractGuard:
		return true
	}
	return false
}

// New allocates a zero record of the kind's payload shape.
func New(k Kind) Record {
	r := kinds[k].shape()
	r.Head().Kind = k
	return r
}
