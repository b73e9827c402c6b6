package repository

// Schema is the subset of the survey database the monitor reads. The monitor never
// writes to it; the statements exist for local databases and tests.
const Schema = `
CREATE TABLE IF NOT EXISTS monitor_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	survey_id INTEGER NOT NULL,
	token_hash TEXT NOT NULL UNIQUE,
	company TEXT NOT NULL DEFAULT '',
	research TEXT NOT NULL DEFAULT '',
	usage_count INTEGER NOT NULL DEFAULT 0,
	usage_max INTEGER,
	created_at TEXT NOT NULL,
	expires_at TEXT
);
CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	survey_id INTEGER NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	label TEXT NOT NULL,
	factor TEXT NOT NULL,
	scale TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS survey_responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	link_id INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	score REAL,
	risk_level TEXT,
	FOREIGN KEY (link_id) REFERENCES monitor_links(id)
);
CREATE TABLE IF NOT EXISTS answers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	response_id INTEGER NOT NULL,
	question_id INTEGER NOT NULL,
	value INTEGER NOT NULL,
	FOREIGN KEY (response_id) REFERENCES survey_responses(id),
	FOREIGN KEY (question_id) REFERENCES questions(id)
);
CREATE INDEX IF NOT EXISTS idx_responses_link ON survey_responses(link_id, created_at);
CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id, response_id);
`
