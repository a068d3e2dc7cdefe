package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/trackfolio/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateTransactionsTable() // Adds columns introduced after the first release
	migrateTickersTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		ticker TEXT NOT NULL,
		quantity REAL NOT NULL DEFAULT 0,
		price REAL NOT NULL DEFAULT 0,
		order_type TEXT NOT NULL,
		broker TEXT,
		sector TEXT,
		asset_type TEXT,
		company TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tickers (
		ticker TEXT PRIMARY KEY,
		company TEXT,
		sector TEXT,
		asset_type TEXT,
		reference_price REAL NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// tableColumns returns the column set of an existing table, or nil when the
// table does not exist yet (fresh database, CREATE TABLE will handle it).
func tableColumns(table string) map[string]bool {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
	if err != nil {
		if err != sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Error("Error checking for table", "table", table, "error", err)
			} else {
				stdlog.Printf("Error checking for table %s: %v", table, err)
			}
		}
		return nil
	}

	rows, err := DB.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema", "table", table, "error", err)
		} else {
			stdlog.Printf("Error querying table schema for %s: %v", table, err)
		}
		return nil
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info", "table", table, "error", err)
			} else {
				stdlog.Printf("Error scanning column info for %s: %v", table, err)
			}
			return nil
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info", "table", table, "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for %s: %v", table, err)
		}
		return nil
	}
	return columnExists
}

func migrateTransactionsTable() {
	columnExists := tableColumns("transactions")
	if columnExists == nil {
		return
	}

	// company arrived after the first release; older databases miss it.
	if _, ok := columnExists["company"]; !ok {
		_, err := DB.Exec("ALTER TABLE transactions ADD COLUMN company TEXT")
		if err != nil {
			logger.L.Error("Error adding 'company' column to 'transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'company' column to 'transactions' table")
		}
	}
}

func migrateTickersTable() {
	columnExists := tableColumns("tickers")
	if columnExists == nil {
		return
	}

	if _, ok := columnExists["reference_price"]; !ok {
		_, err := DB.Exec("ALTER TABLE tickers ADD COLUMN reference_price REAL NOT NULL DEFAULT 0")
		if err != nil {
			logger.L.Error("Error adding 'reference_price' column to 'tickers' table", "error", err)
		} else {
			logger.L.Info("Added 'reference_price' column to 'tickers' table")
		}
	}
}
