package journal

const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	strategy TEXT NOT NULL,
	profit REAL NOT NULL,
	extra TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_events_level ON events(level);
CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy);
`
