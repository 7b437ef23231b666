// Package migration holds the sqlite schema for the skip database.
package migration

const Create = `
CREATE TABLE SkippedTrack (
  track_id TEXT PRIMARY KEY,
  track_name TEXT,
  artist_name TEXT,
  skip_count INTEGER NOT NULL DEFAULT 0,
  not_skipped_count INTEGER NOT NULL DEFAULT 0,
  last_skipped_at DATETIME,
  unliked INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE SkipEvent (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  track_id TEXT NOT NULL,
  skipped_at DATETIME NOT NULL,
  FOREIGN KEY (track_id) REFERENCES SkippedTrack(track_id)
);

CREATE TABLE Session (
  id TEXT PRIMARY KEY,
  start_time DATETIME NOT NULL,
  end_time DATETIME NOT NULL,
  duration_ms INTEGER NOT NULL,
  skipped_tracks INTEGER NOT NULL,
  device_name TEXT,
  device_type TEXT
);

CREATE TABLE SessionTrack (
  session_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  track_id TEXT NOT NULL,
  skipped INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (session_id, position),
  FOREIGN KEY (session_id) REFERENCES Session(id)
);

CREATE TABLE Artist (
  id TEXT PRIMARY KEY,
  name TEXT,
  genres_last_updated DATETIME
);

CREATE TABLE ArtistGenre (
  artist TEXT NOT NULL,
  genre TEXT NOT NULL,
  PRIMARY KEY (artist, genre),
  FOREIGN KEY (artist) REFERENCES Artist(id)
);

CREATE TABLE Statistics (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  data TEXT NOT NULL,
  updated DATETIME NOT NULL
);

CREATE TABLE Auth (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  token TEXT NOT NULL,
  updated DATETIME NOT NULL
);
`
