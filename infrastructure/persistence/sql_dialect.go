package persistence

import (
	"regexp"
	"strings"
)

// Dialect captures the differences between the Postgres and SQL Server renditions
// of the download store. Queries are written with $N placeholders and {table}
// tokens and rebound per dialect.
type Dialect struct {
	Name      string
	tables    map[string]string
	bindParam func(n string) string
	schema    []string
	upsert    string
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

func (d Dialect) rebind(q string) string {
	for token, table := range d.tables {
		q = strings.ReplaceAll(q, "{"+token+"}", table)
	}
	if d.bindParam == nil {
		return q
	}
	return placeholderRe.ReplaceAllStringFunc(q, func(m string) string {
		return d.bindParam(m[1:])
	})
}

var Postgres = Dialect{
	Name:   "postgres",
	tables: map[string]string{"downloads": "downloads", "users": "users"},
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			google_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			profile_picture TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			expires_in BIGINT NOT NULL DEFAULT 3600,
			token_expiry TIMESTAMPTZ NOT NULL,
			last_login TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS downloads (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			original_file_name TEXT NOT NULL,
			file_type TEXT NOT NULL,
			format_id TEXT NOT NULL DEFAULT '',
			file_path TEXT NOT NULL DEFAULT '',
			file_size BIGINT NOT NULL DEFAULT 0,
			youtube_url TEXT NOT NULL,
			youtube_title TEXT NOT NULL DEFAULT '',
			youtube_thumbnail TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NOT NULL,
			downloaded_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_user_created ON downloads (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads (status)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_expires_at ON downloads (expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_users_token_expiry ON users (token_expiry)`,
	},
	upsert: `INSERT INTO users (id, google_id, name, email, profile_picture, access_token, refresh_token, expires_in, token_expiry, last_login, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (google_id) DO UPDATE SET
			name=EXCLUDED.name,
			email=EXCLUDED.email,
			profile_picture=EXCLUDED.profile_picture,
			access_token=EXCLUDED.access_token,
			refresh_token=CASE WHEN EXCLUDED.refresh_token = '' THEN users.refresh_token ELSE EXCLUDED.refresh_token END,
			expires_in=EXCLUDED.expires_in,
			token_expiry=EXCLUDED.token_expiry,
			last_login=EXCLUDED.last_login,
			updated_at=EXCLUDED.updated_at
		RETURNING ` + userColumns,
}

var MSSQL = Dialect{
	Name:      "mssql",
	tables:    map[string]string{"downloads": "dbo.[downloads]", "users": "dbo.[users]"},
	bindParam: func(n string) string { return "@p" + n },
	schema: []string{
		`IF OBJECT_ID('dbo.users', 'U') IS NULL BEGIN
			CREATE TABLE dbo.[users] (
				id NVARCHAR(36) NOT NULL PRIMARY KEY,
				google_id NVARCHAR(255) NOT NULL UNIQUE,
				name NVARCHAR(255) NOT NULL DEFAULT '',
				email NVARCHAR(320) NOT NULL UNIQUE,
				profile_picture NVARCHAR(2048) NOT NULL DEFAULT '',
				access_token NVARCHAR(MAX) NOT NULL DEFAULT '',
				refresh_token NVARCHAR(MAX) NOT NULL DEFAULT '',
				expires_in BIGINT NOT NULL DEFAULT 3600,
				token_expiry DATETIMEOFFSET NOT NULL,
				last_login DATETIMEOFFSET NOT NULL,
				created_at DATETIMEOFFSET NOT NULL,
				updated_at DATETIMEOFFSET NOT NULL
			)
		END`,
		`IF OBJECT_ID('dbo.downloads', 'U') IS NULL BEGIN
			CREATE TABLE dbo.[downloads] (
				id NVARCHAR(36) NOT NULL PRIMARY KEY,
				user_id NVARCHAR(36) NOT NULL,
				file_name NVARCHAR(1024) NOT NULL,
				original_file_name NVARCHAR(1024) NOT NULL,
				file_type NVARCHAR(16) NOT NULL,
				format_id NVARCHAR(64) NOT NULL DEFAULT '',
				file_path NVARCHAR(2048) NOT NULL DEFAULT '',
				file_size BIGINT NOT NULL DEFAULT 0,
				youtube_url NVARCHAR(2048) NOT NULL,
				youtube_title NVARCHAR(1024) NOT NULL DEFAULT '',
				youtube_thumbnail NVARCHAR(2048) NOT NULL DEFAULT '',
				status NVARCHAR(16) NOT NULL,
				error_message NVARCHAR(MAX) NOT NULL DEFAULT '',
				expires_at DATETIMEOFFSET NOT NULL,
				downloaded_at DATETIMEOFFSET NOT NULL,
				created_at DATETIMEOFFSET NOT NULL,
				updated_at DATETIMEOFFSET NOT NULL
			);
			CREATE INDEX idx_downloads_user_created ON dbo.[downloads] (user_id, created_at DESC);
			CREATE INDEX idx_downloads_status ON dbo.[downloads] (status);
			CREATE INDEX idx_downloads_expires_at ON dbo.[downloads] (expires_at);
		END`,
	},
	upsert: `MERGE dbo.[users] WITH (HOLDLOCK) AS t
		USING (SELECT @p2 AS google_id) AS s ON t.google_id = s.google_id
		WHEN MATCHED THEN UPDATE SET
			name=@p3, email=@p4, profile_picture=@p5, access_token=@p6,
			refresh_token=CASE WHEN @p7 = '' THEN t.refresh_token ELSE @p7 END,
			expires_in=@p8, token_expiry=@p9, last_login=@p10, updated_at=@p12
		WHEN NOT MATCHED THEN INSERT (id, google_id, name, email, profile_picture, access_token, refresh_token, expires_in, token_expiry, last_login, created_at, updated_at)
			VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12)
		OUTPUT inserted.id, inserted.google_id, inserted.name, inserted.email, inserted.profile_picture, inserted.access_token, inserted.refresh_token, inserted.expires_in, inserted.token_expiry, inserted.last_login, inserted.created_at, inserted.updated_at;`,
}

// DialectFor maps a configured vendor name onto its dialect.
func DialectFor(vendor string) (Dialect, bool) {
	switch strings.ToLower(vendor) {
	case "postgres", "postgresql", "psql":
		return Postgres, true
	case "mssql", "sqlserver":
		return MSSQL, true
	}
	return Dialect{}, false
}
