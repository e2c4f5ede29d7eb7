// Package all registers every sink backend with the sink factory.
// Blank-import it from main so the configured kind is always available.
package all

import (
	_ "ventasdwh/internal/sink/mssql"
	_ "ventasdwh/internal/sink/postgres"
	_ "ventasdwh/internal/sink/sqlite"
)
