package logging

import (
	"log/slog"
	"os"
)

// Setup installs the initial JSON logger on stdout. Once the database
// connection exists, main replaces it with a MultiHandler that also
// feeds ERROR+ records into the system_logs table.
func Setup() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}
