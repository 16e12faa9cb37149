// ABOUTME: SQLite database schema for contract analysis storage
// ABOUTME: Creates document, clause, report, assessment and precedent tables
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Ingested contracts and their pipeline state
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    filename TEXT,
    sha256 TEXT,
    blocks TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    status_reason TEXT,
    ingested_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Labeled clauses, one row per position
CREATE TABLE IF NOT EXISTS clauses (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset INTEGER NOT NULL,
    hint TEXT,
    heading TEXT,
    text TEXT NOT NULL,
    category TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 0,
    label_source TEXT,
    UNIQUE(document_id, position)
);

-- Finished reports as JSON documents
CREATE TABLE IF NOT EXISTS reports (
    document_id TEXT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
    body TEXT NOT NULL,
    max_severity INTEGER,
    generated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Denormalized assessments for risk queries
CREATE TABLE IF NOT EXISTS assessments (
    clause_id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    category TEXT NOT NULL,
    score REAL NOT NULL,
    severity INTEGER NOT NULL,
    body TEXT NOT NULL
);

-- Curated precedent corpus
CREATE TABLE IF NOT EXISTS precedents (
    id TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    text TEXT NOT NULL,
    baseline_risk REAL NOT NULL,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_sha ON documents(sha256);
CREATE INDEX IF NOT EXISTS idx_clauses_document ON clauses(document_id);
CREATE INDEX IF NOT EXISTS idx_assessments_document ON assessments(document_id, severity);
CREATE INDEX IF NOT EXISTS idx_precedents_category ON precedents(category);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
