// Package version хранит сведения о сборке, заполняемые через -ldflags:
//
//	-X github.com/vladislavdragonenkov/ordercore/internal/version.version=v1.0.0
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// String форматирует сведения о сборке для логов и флага -version.
func String() string {
	return fmt.Sprintf("ordercore %s (commit %s, built %s)", version, commit, date)
}
