// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"gate.computer/aot/env"
	"gate.computer/aot/record"
)

var validationCodes = map[record.Kind]Code{
	record.ValidateClass:                                ErrClassValidation,
	record.ValidateInstanceField:                        ErrInstanceFieldValidation,
	record.ValidateStaticField:                          ErrStaticFieldValidation,
	record.ValidateArbitraryClass:                       ErrArbitraryClassValidation,
	record.ValidateClassByName:                          ErrClassByNameValidation,
	record.ValidateProfiledClass:                        ErrProfiledClassValidation,
	record.ValidateClassFromCP:                          ErrClassFromCPValidation,
	record.ValidateDefiningClassFromCP:                  ErrDefiningClassFromCPValidation,
	record.ValidateStaticClassFromCP:                    ErrStaticClassFromCPValidation,
	record.ValidateClassFromITableIndexCP:               ErrClassFromITableIndexCPValidation,
	record.ValidateDeclaringClassFromFieldOrStatic:      ErrDeclaringClassFromFieldOrStaticValidation,
	record.ValidateArrayClassFromComponentClass:         ErrArrayClassFromComponentClassValidation,
	record.ValidateComponentClassFromArrayClass:         ErrComponentClassFromArrayClassValidation,
	record.ValidateSuperClassFromClass:                  ErrSuperClassFromClassValidation,
	record.ValidateConcreteSubClassFromClass:            ErrConcreteSubClassFromClassValidation,
	record.ValidateClassInstanceOfClass:                 ErrClassInstanceOfClassValidation,
	record.ValidateSystemClassByName:                    ErrSystemClassByNameValidation,
	record.ValidateClassChain:                           ErrClassChainValidation,
	record.ValidateMethodFromClass:                      ErrMethodFromClassValidation,
	record.ValidateStaticMethodFromCP:                   ErrStaticMethodFromCPValidation,
	record.ValidateSpecialMethodFromCP:                  ErrSpecialMethodFromCPValidation,
	record.ValidateVirtualMethodFromCP:                  ErrVirtualMethodFromCPValidation,
	record.ValidateVirtualMethodFromOffset:              ErrVirtualMethodFromOffsetValidation,
	record.ValidateInterfaceMethodFromCP:                ErrInterfaceMethodFromCPValidation,
	record.ValidateImproperInterfaceMethodFromCP:        ErrImproperInterfaceMethodFromCPValidation,
	record.ValidateMethodFromClassAndSig:                ErrMethodFromClassAndSigValidation,
	record.ValidateStackWalkerMaySkipFrames:             ErrStackWalkerMaySkipFramesValidation,
	record.ValidateClassInfoIsInitialized:               ErrClassInfoIsInitializedValidation,
	record.ValidateMethodFromSingleImplementer:          ErrMethodFromSingleImplementerValidation,
	record.ValidateMethodFromSingleInterfaceImplementer: ErrMethodFromSingleInterfaceImplementerValidation,
	record.ValidateMethodFromSingleAbstractImplementer:  ErrMethodFromSingleAbstractImplementerValidation,
	record.ValidateJ2IThunkFromMethod:                   ErrJ2IThunkFromMethodValidation,
}

func newValidation(r record.Record) applier {
	return &validator{r: r}
}

// validator checks a compile-time assumption.  Nothing is patched; a failed
// check rejects the whole method.
type validator struct {
	base
	r record.Record
}

func (a *validator) ignore(ctx *Context) bool {
	if ctx.Options.validationDisabled(a.r.Head().Kind) {
		return true
	}
	if r, ok := a.r.(*record.ValidateClassEntry); ok {
		return ctx.siteUnloaded(r.InlinedSite)
	}
	return false
}

func (a *validator) prepare(ctx *Context) error {
	k := a.r.Head().Kind

	ctx.Counters.ValidationsAttempted++

	ok, err := a.validate(ctx)
	if err != nil {
		return err
	}
	if !ok {
		ctx.Counters.ValidationsFailed++
		ctx.Log.WithField("kind", k.String()).Info("validation failed")
		return validationCodes[k]
	}
	return nil
}

func (a *validator) validate(ctx *Context) (bool, error) {
	switch r := a.r.(type) {
	case *record.ValidateClassEntry:
		return validateClassEntry(ctx, r)

	case *record.ArbitraryClass:
		c, err := ctx.findClass(r.LoaderChain, r.ClassChain)
		return c != 0, err
	}

	sv, err := ctx.symbols()
	if err != nil {
		return false, err
	}

	switch r := a.r.(type) {
	case *record.ClassByName:
		return sv.ValidateClassByName(r.ClassID, r.BeholderID, r.ChainOffset), nil

	case *record.ProfiledClass:
		return sv.ValidateProfiledClass(r.ClassID, r.ChainOffset, r.LoaderChainOffset), nil

	case *record.ClassFromCP:
		switch r.Kind {
		case record.ValidateStaticClassFromCP:
			return sv.ValidateStaticClassFromCP(r.ClassID, r.BeholderID, r.CPIndex), nil
		case record.ValidateClassFromITableIndexCP:
			return sv.ValidateClassFromITableIndexCP(r.ClassID, r.BeholderID, r.CPIndex), nil
		case record.ValidateDeclaringClassFromFieldOrStatic:
			return sv.ValidateDeclaringClassFromFieldOrStatic(r.ClassID, r.BeholderID, r.CPIndex), nil
		default:
			return sv.ValidateClassFromCP(r.ClassID, r.BeholderID, r.CPIndex), nil
		}

	case *record.DefiningClassFromCP:
		return sv.ValidateDefiningClassFromCP(r.ClassID, r.BeholderID, r.CPIndex, r.IsStatic), nil

	case *record.ClassFromClass:
		switch r.Kind {
		case record.ValidateArrayClassFromComponentClass:
			return sv.ValidateArrayClassFromComponentClass(r.ClassID, r.SourceID), nil
		case record.ValidateComponentClassFromArrayClass:
			return sv.ValidateComponentClassFromArrayClass(r.ClassID, r.SourceID), nil
		case record.ValidateSuperClassFromClass:
			return sv.ValidateSuperClassFromClass(r.ClassID, r.SourceID), nil
		default:
			return sv.ValidateConcreteSubClassFromClass(r.ClassID, r.SourceID), nil
		}

	case *record.InstanceOf:
		return sv.ValidateClassInstanceOfClass(r.ClassOneID, r.ClassTwoID, r.ObjectTypeIsFixed, r.CastTypeIsFixed, r.IsInstanceOf), nil

	case *record.SystemClassByName:
		return sv.ValidateSystemClassByName(r.ClassID, r.ChainOffset), nil

	case *record.ClassChain:
		return sv.ValidateClassChain(r.ClassID, r.ChainOffset), nil

	case *record.MethodFromClass:
		return sv.ValidateMethodFromClass(r.MethodID, r.BeholderID, r.Index), nil

	case *record.MethodFromCP:
		switch r.Kind {
		case record.ValidateStaticMethodFromCP:
			return sv.ValidateStaticMethodFromCP(r.MethodID, r.DefiningClassID, r.BeholderID, r.CPIndex), nil
		case record.ValidateSpecialMethodFromCP:
			return sv.ValidateSpecialMethodFromCP(r.MethodID, r.DefiningClassID, r.BeholderID, r.CPIndex), nil
		case record.ValidateImproperInterfaceMethodFromCP:
			return sv.ValidateImproperInterfaceMethodFromCP(r.MethodID, r.DefiningClassID, r.BeholderID, r.CPIndex), nil
		default:
			return sv.ValidateVirtualMethodFromCP(r.MethodID, r.DefiningClassID, r.BeholderID, r.CPIndex), nil
		}

	case *record.VirtualMethodFromOffset:
		return sv.ValidateVirtualMethodFromOffset(r.MethodID, r.DefiningClassID, r.BeholderID, r.VirtualOffset, r.IgnoreRtResolve), nil

	case *record.InterfaceMethodFromCP:
		return sv.ValidateInterfaceMethodFromCP(r.MethodID, r.DefiningClassID, r.BeholderID, r.LookupID, r.CPIndex), nil

	case *record.MethodFromClassAndSig:
		return sv.ValidateMethodFromClassAndSig(r.MethodID, r.DefiningClassID, r.BeholderID, r.LookupID, r.SignatureOffset), nil

	case *record.StackWalker:
		return sv.ValidateStackWalkerMaySkipFrames(r.MethodID, r.MethodClassID, r.SkipFrames), nil

	case *record.ClassInfoIsInitialized:
		return sv.ValidateClassInfoIsInitialized(r.ClassID, r.IsInitialized), nil

	case *record.SingleImplementer:
		if r.Kind == record.ValidateMethodFromSingleAbstractImplementer {
			return sv.ValidateMethodFromSingleAbstractImplementer(r.MethodID, r.DefiningClassID, r.ThisClassID, r.Index, r.CallerMethodID), nil
		}
		return sv.ValidateMethodFromSingleImplementer(r.MethodID, r.DefiningClassID, r.ThisClassID, r.Index, r.CallerMethodID, r.UseResolvedInterfaceMethod), nil

	case *record.SingleInterfaceImplementer:
		return sv.ValidateMethodFromSingleInterfaceImplementer(r.MethodID, r.DefiningClassID, r.ThisClassID, r.CPIndex, r.CallerMethodID), nil

	case *record.J2IThunkFromMethod:
		return sv.ValidateJ2IThunkFromMethod(r.ThunkID, r.MethodID), nil

	default:
		return false, ErrUnknownKind
	}
}

// validateClassEntry resolves a class through the constant pool and compares
// it with the stored class chain.  An unresolved entry fails validation.
func validateClassEntry(ctx *Context, r *record.ValidateClassEntry) (bool, error) {
	var (
		cp    = ctx.currentConstantPool(r.InlinedSite)
		index = uint32(r.CPIndex)
		c     env.Class
		found bool
	)

	switch r.Kind {
	case record.ValidateStaticField:
		_, c, found = ctx.Env.Resolver.ResolveStaticField(cp, index)
	case record.ValidateInstanceField:
		_, c, found = ctx.Env.Resolver.ResolveInstanceField(cp, index)
	default:
		c, found = ctx.Env.Resolver.ResolveClass(cp, index)
	}

	if !found || c == 0 {
		return false, nil
	}
	return ctx.validateChain(c, r.ClassChain)
}
