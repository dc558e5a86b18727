// Copyright 2025 The fuzzer-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const createFailuresTable = `
CREATE TABLE IF NOT EXISTS fuzz_failures (
	id          SERIAL PRIMARY KEY,
	target      TEXT NOT NULL,
	input       JSONB NOT NULL,
	status_code TEXT NOT NULL,
	response    TEXT NOT NULL,
	mutation    TEXT NOT NULL,
	request_id  INTEGER NOT NULL,
	error       TEXT,
	observed_at TIMESTAMPTZ NOT NULL
)`

// PGSink mirrors failure records into a PostgreSQL table, for campaigns
// whose results feed downstream triage tooling. The file artifacts remain
// the source of truth; sink failures are logged by the store and otherwise
// ignored.
type PGSink struct {
	db *sql.DB
}

// OpenPGSink connects to the database and ensures the failures table
// exists.
func OpenPGSink(dsn string) (*PGSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open failure sink: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach failure sink: %w", err)
	}
	if _, err := db.Exec(createFailuresTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare failure sink schema: %w", err)
	}
	return &PGSink{db: db}, nil
}

// Insert writes one failure record.
func (p *PGSink) Insert(target string, rec FailureRecord) error {
	_, err := p.db.Exec(
		`INSERT INTO fuzz_failures (target, input, status_code, response, mutation, request_id, error, observed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`,
		target, string(rec.Input), rec.Status, rec.Response, rec.Operator,
		rec.SequenceID, rec.Err, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert failure record: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (p *PGSink) Close() error {
	return p.db.Close()
}
