// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite implements a durable blob store on an SQLite database.
package sqlite

import (
	"database/sql"

	"gate.computer/aot/env"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entry (
	key   TEXT PRIMARY KEY,
	blob  BLOB NOT NULL,
	stale INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS item (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	blob   BLOB NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open a database file.  The path ":memory:" opens a private in-memory
// database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if path == ":memory:" {
		// Every connection would get its own database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "setting busy timeout")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating tables")
	}

	return &Store{db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(key string) (blob []byte, err error) {
	err = s.db.QueryRow("SELECT blob FROM entry WHERE key = ? AND stale = 0", key).Scan(&blob)
	if err == sql.ErrNoRows {
		err = env.ErrNotFound
	}
	return
}

func (s *Store) Store(key string, blob []byte) error {
	_, err := s.db.Exec("INSERT INTO entry (key, blob) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET blob = excluded.blob, stale = 0", key, blob)
	return errors.Wrapf(err, "storing %q", key)
}

func (s *Store) MarkStale(key string) error {
	res, err := s.db.Exec("UPDATE entry SET stale = 1 WHERE key = ?", key)
	if err != nil {
		return errors.Wrapf(err, "marking %q stale", key)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return env.ErrNotFound
	}
	return nil
}

// Keys lists the usable entries.
func (s *Store) Keys() (keys []string, err error) {
	rows, err := s.db.Query("SELECT key FROM entry WHERE stale = 0 ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) Put(item []byte) (uint64, error) {
	res, err := s.db.Exec("INSERT INTO item (blob) VALUES (?)", item)
	if err != nil {
		return 0, errors.Wrap(err, "storing item")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *Store) At(offset uint64) (item []byte, err error) {
	err = s.db.QueryRow("SELECT blob FROM item WHERE id = ?", int64(offset)).Scan(&item)
	if err == sql.ErrNoRows {
		err = errors.Errorf("store: no item at offset %d", offset)
	}
	return
}
