package store

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    taken_at TEXT NOT NULL,
    day TEXT NOT NULL,
    clicks INTEGER NOT NULL,
    keypresses INTEGER NOT NULL,
    screen_time REAL NOT NULL,
    active_app TEXT,
    risk_level TEXT NOT NULL,
    recommendations TEXT
);

CREATE TABLE IF NOT EXISTS breaks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    taken_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
CREATE INDEX IF NOT EXISTS idx_snapshots_day ON snapshots(day);
CREATE INDEX IF NOT EXISTS idx_breaks_taken_at ON breaks(taken_at);
`
