// Package all links every storage backend into the binary.
package all

import (
	_ "dataprep/internal/storage/csvfile"
	_ "dataprep/internal/storage/mssql"
	_ "dataprep/internal/storage/postgres"
	_ "dataprep/internal/storage/sqlite"
)
