// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classchain stores class fingerprints in the persistent store and
// validates live classes against them.
package classchain

import (
	"fmt"

	"gate.computer/aot/env"
	"github.com/fxamacker/cbor/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

const DefaultCacheSize = 4096

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("classchain: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal a chain in canonical form.  Equal chains have equal encodings.
func Marshal(chain env.ClassChain) ([]byte, error) {
	return encMode.Marshal(chain)
}

func Unmarshal(data []byte) (chain env.ClassChain, err error) {
	if err = cbor.Unmarshal(data, &chain); err != nil {
		err = errors.Wrap(err, "classchain: unmarshal")
	}
	return
}

// Put a chain into the store, returning its offset.
func Put(store env.BlobStore, chain env.ClassChain) (uint64, error) {
	data, err := Marshal(chain)
	if err != nil {
		return 0, err
	}
	return store.Put(data)
}

type validated struct {
	class  env.Class
	offset uint64
}

// Validator compares live classes with stored chains.  Decoded chains and
// positive validation results are cached; negative results are not, since
// a class may be loaded later.
type Validator struct {
	store  env.BlobStore
	vm     env.VM
	chains *lru.Cache[uint64, env.ClassChain]
	valid  *lru.Cache[validated, struct{}]
}

func NewValidator(store env.BlobStore, vm env.VM, cacheSize int) (*Validator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	chains, err := lru.New[uint64, env.ClassChain](cacheSize)
	if err != nil {
		return nil, err
	}

	valid, err := lru.New[validated, struct{}](cacheSize)
	if err != nil {
		return nil, err
	}

	return &Validator{store, vm, chains, valid}, nil
}

// Chain at a store offset.
func (v *Validator) Chain(offset uint64) (env.ClassChain, error) {
	if chain, found := v.chains.Get(offset); found {
		return chain, nil
	}

	data, err := v.store.At(offset)
	if err != nil {
		return env.ClassChain{}, errors.Wrapf(err, "classchain: offset %#x", offset)
	}

	chain, err := Unmarshal(data)
	if err != nil {
		return chain, err
	}

	v.chains.Add(offset, chain)
	return chain, nil
}

// Validate reports whether the live class matches the stored chain.
func (v *Validator) Validate(c env.Class, offset uint64) (bool, error) {
	if c == 0 {
		return false, nil
	}

	key := validated{c, offset}
	if v.valid.Contains(key) {
		return true, nil
	}

	stored, err := v.Chain(offset)
	if err != nil {
		return false, err
	}

	live, found := v.vm.ClassChain(c)
	if !found || !live.Equal(stored) {
		return false, nil
	}

	v.valid.Add(key, struct{}{})
	return true, nil
}

// Find the class named by a chain in the loader identified by a loader
// chain, and validate it.
func (v *Validator) Find(loaderOffset, classOffset uint64) (env.Class, bool, error) {
	loaderChain, err := v.Chain(loaderOffset)
	if err != nil {
		return 0, false, err
	}

	loader, found := v.vm.LoaderFromChain(loaderChain)
	if !found {
		return 0, false, nil
	}

	chain, err := v.Chain(classOffset)
	if err != nil {
		return 0, false, err
	}

	c, found := v.vm.ClassByName(loader, chain.Name)
	if !found {
		return 0, false, nil
	}

	ok, err := v.Validate(c, classOffset)
	if !ok {
		c = 0
	}
	return c, ok, err
}

// Purge forgets cached validation results, after class redefinition.
func (v *Validator) Purge() {
	v.valid.Purge()
}
