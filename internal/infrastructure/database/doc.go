// Package database provides the SQLite store behind HSB core.
//
// The gateway persists two kinds of JSON documents: device records (so a
// returning node gets its devId back) and scenes. Both live in one SQLite
// file opened here; the schema comes from the embedded migrations package.
//
// Usage:
//
//	db, err := database.Open(database.FromConfig(cfg.Database))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each migration runs in its own transaction.
package database
