// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reloc

import (
	"gate.computer/aot/record"
	"github.com/apex/log"
	"golang.org/x/xerrors"
)

// applier holds a decoded record and the private data computed by prepare.
type applier interface {
	ignore(ctx *Context) bool
	prepare(ctx *Context) error
	apply(ctx *Context, loc Location) error
	applyPair(ctx *Context, high, low Location) error
}

type base struct{}

func (base) ignore(*Context) bool                           { return false }
func (base) prepare(*Context) error                         { return nil }
func (base) apply(*Context, Location) error                 { return nil }
func (base) applyPair(*Context, Location, Location) error { return ErrUnsupportedPair }

func newApplier(r record.Record) applier {
	switch k := r.Head().Kind; k.Family() {
	case record.FamilyAddress:
		return newAddress(r)
	case record.FamilyConstantPool:
		return newPool(r)
	case record.FamilyGuard:
		return newGuard(r)
	case record.FamilyValidation:
		return newValidation(r)
	case record.FamilyPointer:
		return newPointer(r)
	default:
		return newMeta(r)
	}
}

// Apply one decoded record at all of its offsets.
func Apply(ctx *Context, r record.Record) error {
	ctx.init()

	h := r.Head()
	if !h.Kind.Valid() {
		return ErrUnknownKind
	}

	ctx.Counters.Kinds[h.Kind]++
	return applyAtAllOffsets(ctx, r, newApplier(r))
}

func applyAtAllOffsets(ctx *Context, r record.Record, a applier) error {
	if a.ignore(ctx) {
		ctx.Counters.RecordsSkipped++
		return nil
	}

	if err := a.prepare(ctx); err != nil {
		return err
	}

	h := r.Head()
	eip := h.Flags.EIPRelative()

	if ctx.Target.IsOrderedPairRelocation(h.Kind) {
		if len(h.Offsets)%2 != 0 {
			return ErrCorruptTable
		}

		skip := int32(ctx.Target.OrderedPairSkip())

		for i := 0; i < len(h.Offsets); i += 2 {
			high, err := ctx.location(h.Offsets[i]+skip, eip)
			if err != nil {
				return err
			}
			low, err := ctx.location(h.Offsets[i+1]+skip, eip)
			if err != nil {
				return err
			}

			ctx.Log.WithFields(log.Fields{"high": high.At, "low": low.At}).Debug("patch pair")

			if err := a.applyPair(ctx, high, low); err != nil {
				return err
			}
		}
	} else {
		for _, offset := range h.Offsets {
			loc, err := ctx.location(offset, eip)
			if err != nil {
				return err
			}

			ctx.Log.WithField("at", loc.At).Debug("patch")

			if err := a.apply(ctx, loc); err != nil {
				return err
			}
		}
	}

	ctx.Counters.RecordsApplied++
	return nil
}

// ApplyRelocations walks a relocation table, decoding and applying each
// record in order.  The first failure aborts the walk; later records are not
// decoded.
func ApplyRelocations(ctx *Context, g record.Group) error {
	ctx.init()

	if err := g.Check(); err != nil {
		return ErrCorruptTable
	}
	if len(g.Table) == 0 {
		return nil
	}

	for offset := g.First(); offset < g.PastLast(); {
		next, err := g.Next(offset)
		if err != nil {
			return ErrCorruptTable
		}

		r, err := g.Decode(offset)
		if err != nil {
			return decodeError(err)
		}

		l := ctx.Log.WithFields(log.Fields{
			"offset": offset,
			"kind":   r.Head().Kind.String(),
		})
		l.Debug("decoded")

		if err := Apply(ctx, r); err != nil {
			l.WithError(err).Debug("failed")
			return err
		}

		offset = next
	}

	return nil
}

func decodeError(err error) Code {
	var unknown record.UnknownKindError

	switch {
	case xerrors.As(err, &unknown):
		return ErrUnknownKind
	case err == record.ErrSizeMismatch:
		return ErrSizeMismatch
	default:
		return ErrCorruptTable
	}
}
