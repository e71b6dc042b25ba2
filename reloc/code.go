// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"fmt"
)

// Code is a relocation result.  A nil error means success; a Code error
// names the reason for failure.
type Code uint8

type codeClass uint8

const (
	fatal codeClass = iota
	retryable
	validation
	invariant
	local
)

const (
	// Retryable.
	ErrTrampolineReservation Code = iota + 1
	ErrPICTrampolineReservation
	ErrThunk

	// Local to an inlined site; never returned.
	ErrInlinedMethodGuard

	// Relocation failures.
	ErrHelperLookup
	ErrGlobalValueLookup
	ErrConstantPoolResolution
	ErrStaticFieldResolution
	ErrRelativeTargetRange
	ErrDebugCounter
	ErrPointerLookup
	ErrStoreLookup

	// Validation failures.
	ErrClassValidation
	ErrInstanceFieldValidation
	ErrStaticFieldValidation
	ErrArbitraryClassValidation
	ErrClassByNameValidation
	ErrProfiledClassValidation
	ErrClassFromCPValidation
	ErrDefiningClassFromCPValidation
	ErrStaticClassFromCPValidation
	ErrClassFromITableIndexCPValidation
	ErrDeclaringClassFromFieldOrStaticValidation
	ErrArrayClassFromComponentClassValidation
	ErrComponentClassFromArrayClassValidation
	ErrSuperClassFromClassValidation
	ErrConcreteSubClassFromClassValidation
	ErrClassInstanceOfClassValidation
	ErrSystemClassByNameValidation
	ErrClassChainValidation
	ErrMethodFromClassValidation
	ErrStaticMethodFromCPValidation
	ErrSpecialMethodFromCPValidation
	ErrVirtualMethodFromCPValidation
	ErrVirtualMethodFromOffsetValidation
	ErrInterfaceMethodFromCPValidation
	ErrImproperInterfaceMethodFromCPValidation
	ErrMethodFromClassAndSigValidation
	ErrStackWalkerMaySkipFramesValidation
	ErrClassInfoIsInitializedValidation
	ErrMethodFromSingleImplementerValidation
	ErrMethodFromSingleInterfaceImplementerValidation
	ErrMethodFromSingleAbstractImplementerValidation
	ErrJ2IThunkFromMethodValidation
	ErrSymbolFromManager

	// Invariant violations.
	ErrUnknownKind
	ErrSizeMismatch
	ErrCorruptTable
	ErrMissingCollaborator
	ErrUnsupportedPair
	ErrUnsupportedEncoding

	numCodes
)

var codeInfo = [numCodes]struct {
	text  string
	class codeClass
}{
	ErrTrampolineReservation:    {"trampoline reservation failed", retryable},
	ErrPICTrampolineReservation: {"PIC trampoline reservation failed", retryable},
	ErrThunk:                    {"thunk materialization failed", retryable},

	ErrInlinedMethodGuard: {"inlined method assumption no longer holds", local},

	ErrHelperLookup:           {"helper lookup failed", fatal},
	ErrGlobalValueLookup:      {"global value lookup failed", fatal},
	ErrConstantPoolResolution: {"constant pool entry is unresolved", fatal},
	ErrStaticFieldResolution:  {"static field is unresolved", fatal},
	ErrRelativeTargetRange:    {"relative target is out of range", fatal},
	ErrDebugCounter:           {"debug counter allocation failed", fatal},
	ErrPointerLookup:          {"class or method pointer lookup failed", fatal},
	ErrStoreLookup:            {"persistent store lookup failed", fatal},

	ErrClassValidation:                                {"class validation failed", validation},
	ErrInstanceFieldValidation:                        {"instance field validation failed", validation},
	ErrStaticFieldValidation:                          {"static field validation failed", validation},
	ErrArbitraryClassValidation:                       {"arbitrary class validation failed", validation},
	ErrClassByNameValidation:                          {"class by name validation failed", validation},
	ErrProfiledClassValidation:                        {"profiled class validation failed", validation},
	ErrClassFromCPValidation:                          {"class from constant pool validation failed", validation},
	ErrDefiningClassFromCPValidation:                  {"defining class from constant pool validation failed", validation},
	ErrStaticClassFromCPValidation:                    {"static class from constant pool validation failed", validation},
	ErrClassFromITableIndexCPValidation:               {"class from itable index validation failed", validation},
	ErrDeclaringClassFromFieldOrStaticValidation:      {"declaring class validation failed", validation},
	ErrArrayClassFromComponentClassValidation:         {"array class validation failed", validation},
	ErrComponentClassFromArrayClassValidation:         {"component class validation failed", validation},
	ErrSuperClassFromClassValidation:                  {"superclass validation failed", validation},
	ErrConcreteSubClassFromClassValidation:            {"concrete subclass validation failed", validation},
	ErrClassInstanceOfClassValidation:                 {"instanceof validation failed", validation},
	ErrSystemClassByNameValidation:                    {"system class validation failed", validation},
	ErrClassChainValidation:                           {"class chain validation failed", validation},
	ErrMethodFromClassValidation:                      {"method from class validation failed", validation},
	ErrStaticMethodFromCPValidation:                   {"static method validation failed", validation},
	ErrSpecialMethodFromCPValidation:                  {"special method validation failed", validation},
	ErrVirtualMethodFromCPValidation:                  {"virtual method validation failed", validation},
	ErrVirtualMethodFromOffsetValidation:              {"virtual method from offset validation failed", validation},
	ErrInterfaceMethodFromCPValidation:                {"interface method validation failed", validation},
	ErrImproperInterfaceMethodFromCPValidation:        {"improper interface method validation failed", validation},
	ErrMethodFromClassAndSigValidation:                {"method from signature validation failed", validation},
	ErrStackWalkerMaySkipFramesValidation:             {"stack walker validation failed", validation},
	ErrClassInfoIsInitializedValidation:               {"class initialization validation failed", validation},
	ErrMethodFromSingleImplementerValidation:          {"single implementer validation failed", validation},
	ErrMethodFromSingleInterfaceImplementerValidation: {"single interface implementer validation failed", validation},
	ErrMethodFromSingleAbstractImplementerValidation:  {"single abstract implementer validation failed", validation},
	ErrJ2IThunkFromMethodValidation:                   {"thunk validation failed", validation},
	ErrSymbolFromManager:                              {"symbol is not bound", validation},

	ErrUnknownKind:         {"unknown relocation kind", invariant},
	ErrSizeMismatch:        {"relocation record size mismatch", invariant},
	ErrCorruptTable:        {"relocation table is corrupt", invariant},
	ErrMissingCollaborator: {"required collaborator is missing", invariant},
	ErrUnsupportedPair:     {"kind does not support ordered pairs", invariant},
	ErrUnsupportedEncoding: {"encoding is not supported by the target", invariant},
}

func (c Code) valid() bool {
	return c > 0 && c < numCodes
}

func (c Code) Error() string {
	if c.valid() {
		return "relocation: " + codeInfo[c].text
	}
	return fmt.Sprintf("relocation: code %d", uint8(c))
}

func (c Code) PublicError() string { return c.Error() }

// Retryable failures may succeed if the load is attempted again later.
func (c Code) Retryable() bool { return c.valid() && codeInfo[c].class == retryable }

// Validation failures mean that the cache entry is unusable in this process.
func (c Code) Validation() bool { return c.valid() && codeInfo[c].class == validation }

// Invariant violations indicate a corrupt cache entry or a programming
// error.
func (c Code) Invariant() bool { return c.valid() && codeInfo[c].class == invariant }

// Local failures are handled by the record which detected them.
func (c Code) Local() bool { return c.valid() && codeInfo[c].class == local }
