// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package record

// Symbol validation payloads.  Ids refer to symbols bound by the symbol
// validation manager; offsets refer to blobs in the persistent store.

type ClassByName struct {
	Header
	ClassID     uint16
	BeholderID  uint16
	ChainOffset uint64
}

func (r *ClassByName) fields(f fields) {
	f.u16(&r.ClassID)
	f.u16(&r.BeholderID)
	f.word(&r.ChainOffset)
}

type ProfiledClass struct {
	Header
	ClassID           uint16
	ChainOffset       uint64
	LoaderChainOffset uint64
}

func (r *ProfiledClass) fields(f fields) {
	f.u16(&r.ClassID)
	f.word(&r.ChainOffset)
	f.word(&r.LoaderChainOffset)
}

// ClassFromCP is shared by the kinds which derive a class from a constant
// pool index.
type ClassFromCP struct {
	Header
	ClassID    uint16
	BeholderID uint16
	CPIndex    uint32
}

func (r *ClassFromCP) fields(f fields) {
	f.u16(&r.ClassID)
	f.u16(&r.BeholderID)
	f.u32(&r.CPIndex)
}

type DefiningClassFromCP struct {
	ClassFromCP
	IsStatic bool
}

func (r *DefiningClassFromCP) fields(f fields) {
	r.ClassFromCP.fields(f)
	f.flag(&r.IsStatic)
}

// ClassFromClass derives ClassID from SourceID: array from component,
// component from array, superclass from class, or concrete subclass from
// class.
type ClassFromClass struct {
	Header
	ClassID  uint16
	SourceID uint16
}

func (r *ClassFromClass) fields(f fields) {
	f.u16(&r.ClassID)
	f.u16(&r.SourceID)
}

type InstanceOf struct {
	Header
	ClassOneID        uint16
	ClassTwoID        uint16
	ObjectTypeIsFixed bool
	CastTypeIsFixed   bool
	IsInstanceOf      bool
}

func (r *InstanceOf) fields(f fields) {
	f.u16(&r.ClassOneID)
	f.u16(&r.ClassTwoID)
	f.flag(&r.ObjectTypeIsFixed)
	f.flag(&r.CastTypeIsFixed)
	f.flag(&r.IsInstanceOf)
}

type SystemClassByName struct {
	Header
	ClassID     uint16
	ChainOffset uint64
}

func (r *SystemClassByName) fields(f fields) {
	f.u16(&r.ClassID)
	f.word(&r.ChainOffset)
}

type ClassChain struct {
	Header
	ClassID     uint16
	ChainOffset uint64
}

func (r *ClassChain) fields(f fields) {
	f.u16(&r.ClassID)
	f.word(&r.ChainOffset)
}

type MethodFromClass struct {
	Header
	MethodID   uint16
	BeholderID uint16
	Index      uint32
}

func (r *MethodFromClass) fields(f fields) {
	f.u16(&r.MethodID)
	f.u16(&r.BeholderID)
	f.u32(&r.Index)
}

// MethodFromCP is shared by the static, special, virtual and improper
// interface lookups.
type MethodFromCP struct {
	Header
	MethodID        uint16
	DefiningClassID uint16
	BeholderID      uint16
	CPIndex         uint32
}

func (r *MethodFromCP) fields(f fields) {
	f.u16(&r.MethodID)
	f.u16(&r.DefiningClassID)
	f.u16(&r.BeholderID)
	f.u32(&r.CPIndex)
}

type VirtualMethodFromOffset struct {
	Header
	MethodID        uint16
	DefiningClassID uint16
	BeholderID      uint16
	VirtualOffset   int32
	IgnoreRtResolve bool
}

func (r *VirtualMethodFromOffset) fields(f fields) {
	f.u16(&r.MethodID)
	f.u16(&r.DefiningClassID)
	f.u16(&r.BeholderID)
	f.i32(&r.VirtualOffset)
	f.flag(&r.IgnoreRtResolve)
}

type InterfaceMethodFromCP struct {
	Header
	MethodID        uint16
	DefiningClassID uint16
	BeholderID      uint16
	LookupID        uint16
	CPIndex         uint32
}

func (r *InterfaceMethodFromCP) fields(f fields) {
	f.u16(&r.MethodID)
	f.u16(&r.DefiningClassID)
	f.u16(&r.BeholderID)
	f.u16(&r.LookupID)
	f.u32(&r.CPIndex)
}

type MethodFromClassAndSig struct {
	Header
	MethodID        uint16
	DefiningClassID uint16
	BeholderID      uint16
	LookupID        uint16
	SignatureOffset uint64
}

func (r *MethodFromClassAndSig) fields(f fields) {
	f.u16(&r.MethodID)
	f.u16(&r.DefiningClassID)
	f.u16(&r.BeholderID)
	f.u16(&r.LookupID)
	f.word(&r.SignatureOffset)
}

type StackWalker struct {
	Header
	MethodID      uint16
	MethodClassID uint16
	SkipFrames    bool
}

func (r *StackWalker) fields(f fields) {
	f.u16(&r.MethodID)
	f.u16(&r.MethodClassID)
	f.flag(&r.SkipFrames)
}

type ClassInfoIsInitialized struct {
	Header
	ClassID       uint16
	IsInitialized bool
}

func (r *ClassInfoIsInitialized) fields(f fields) {
	f.u16(&r.ClassID)
	f.flag(&r.IsInitialized)
}

// SingleImplementer is shared by the single implementer and single abstract
// implementer lookups.  Index is a constant pool index or a virtual function
// table slot.
type SingleImplementer struct {
	Header
	MethodID                   uint16
	DefiningClassID            uint16
	ThisClassID                uint16
	Index                      int32
	CallerMethodID             uint16
	UseResolvedInterfaceMethod bool
}

func (r *SingleImplementer) fields(f fields) {
	f.u16(&r.MethodID)
	f.u16(&r.DefiningClassID)
	f.u16(&r.ThisClassID)
	f.i32(&r.Index)
	f.u16(&r.CallerMethodID)
	f.flag(&r.UseResolvedInterfaceMethod)
}

type SingleInterfaceImplementer struct {
	Header
	MethodID        uint16
	DefiningClassID uint16
	ThisClassID     uint16
	CPIndex         int32
	CallerMethodID  uint16
}

func (r *SingleInterfaceImplementer) fields(f fields) {
	f.u16(&r.MethodID)
	f.u16(&r.DefiningClassID)
	f.u16(&r.ThisClassID)
	f.i32(&r.CPIndex)
	f.u16(&r.CallerMethodID)
}

type J2IThunkFromMethod struct {
	Header
	ThunkID  uint16
	MethodID uint16
}

func (r *J2IThunkFromMethod) fields(f fields) {
	f.u16(&r.ThunkID)
	f.u16(&r.MethodID)
}
