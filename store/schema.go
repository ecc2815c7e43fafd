package store

// SchemaVersion is written to PRAGMA user_version.
const SchemaVersion = 1

// Schema contains the complete DDL. Timestamps are unix milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    id           TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    sha256       TEXT NOT NULL DEFAULT '',
    size_bytes   INTEGER NOT NULL DEFAULT 0,
    page_count   INTEGER NOT NULL DEFAULT 0,
    processed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_processed ON documents(processed_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_sha256 ON documents(sha256);

-- Elements are written once per analysis and never updated.
CREATE TABLE IF NOT EXISTS elements (
    document_id  TEXT NOT NULL,
    element_id   INTEGER NOT NULL,
    element_type TEXT NOT NULL CHECK (element_type IN
                 ('title','subtitle','section','paragraph','list_item','table','image')),
    page_number  INTEGER NOT NULL,
    order_index  INTEGER NOT NULL,
    content      TEXT NOT NULL DEFAULT '',
    font_size    REAL,
    is_bold      INTEGER,
    depth        INTEGER NOT NULL DEFAULT 0 CHECK (depth >= 0),
    bbox         TEXT,
    cell_text    TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (document_id, element_id),
    FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_elements_type ON elements(document_id, element_type);
CREATE INDEX IF NOT EXISTS idx_elements_page ON elements(document_id, page_number, order_index);
CREATE INDEX IF NOT EXISTS idx_elements_type_all ON elements(element_type);

-- Cache of stats.Compute; always reproducible from elements.
CREATE TABLE IF NOT EXISTS document_statistics (
    document_id               TEXT PRIMARY KEY,
    title_count               INTEGER NOT NULL DEFAULT 0,
    subtitle_count            INTEGER NOT NULL DEFAULT 0,
    section_count             INTEGER NOT NULL DEFAULT 0,
    paragraph_count           INTEGER NOT NULL DEFAULT 0,
    list_item_count           INTEGER NOT NULL DEFAULT 0,
    table_count               INTEGER NOT NULL DEFAULT 0,
    image_count               INTEGER NOT NULL DEFAULT 0,
    element_count             INTEGER NOT NULL DEFAULT 0,
    page_count                INTEGER NOT NULL DEFAULT 0,
    avg_text_density_per_page REAL NOT NULL DEFAULT 0,
    avg_hierarchical_depth    REAL NOT NULL DEFAULT 0,
    avg_paragraph_length      REAL NOT NULL DEFAULT 0,
    section_distribution      TEXT NOT NULL DEFAULT '{}',
    computed_at               INTEGER NOT NULL,
    FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS document_warnings (
    document_id TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    page        INTEGER NOT NULL DEFAULT 0,
    reason      TEXT NOT NULL,
    PRIMARY KEY (document_id, seq),
    FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

-- One row per analysis attempt, failed ones included. No foreign key:
-- the log outlives deleted documents.
CREATE TABLE IF NOT EXISTS analysis_runs (
    id          TEXT PRIMARY KEY,
    document_id TEXT NOT NULL DEFAULT '',
    filename    TEXT NOT NULL,
    status      TEXT NOT NULL CHECK (status IN ('ok','failed')),
    error       TEXT NOT NULL DEFAULT '',
    warnings    INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    started_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON analysis_runs(started_at DESC);
`
