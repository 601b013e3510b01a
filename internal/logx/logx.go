package logx

import (
	"fmt"
	"log"
	"os"
	"time"
)

const (
	Reset = "\033[0m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
)

// colores por nivel
var levelColor = map[string]string{
	"DEBUG": Cyan,
	"INFO":  Blue,
	"WARN":  Yellow,
	"ERROR": Red,
}

// colores por componente
var componentColor = map[string]string{
	"Api":        Cyan,
	"Dispatcher": Blue,
	"Resolver":   Magenta,
	"Guard":      Red,
	"Registry":   Green,
	"Generator":  Yellow,
	"Analyst":    Yellow,
	"Audit":      Magenta,
	"Platform":   Cyan,
	"Store":      Green,
	"Mock":       Cyan,
	"HTTP":       Blue,
	"Config":     Magenta,
	"App":        Green,
}

// detecta color mode
func useColor() bool {
	return os.Getenv("ENV") == "local" || os.Getenv("ENV") == "dev"
}

// --- Public API ---

func Debug(component, msg string, args ...any) {
	logGeneric("DEBUG", component, msg, args...)
}

func Info(component, msg string, args ...any) {
	logGeneric("INFO", component, msg, args...)
}

func Warn(component, msg string, args ...any) {
	logGeneric("WARN", component, msg, args...)
}

func Error(component, msg string, args ...any) {
	logGeneric("ERROR", component, msg, args...)
}

// --- Core ---

func logGeneric(level, component, msg string, args ...any) {
	full := fmt.Sprintf(msg, args...)

	if useColor() {
		lc := levelColor[level]
		cc := componentColor[component]
		log.Printf("%s[%s]%s %s[%s]%s %s",
			lc, level, Reset,
			cc, component, Reset,
			full,
		)
	} else {
		log.Printf("[%s] [%s] %s", level, component, full)
	}
}

// L logs with a task id prefix.
func L(id, component, msg string, args ...any) {
	prefix := fmt.Sprintf("[%s][%s][%s] ",
		time.Now().Format(time.RFC3339),
		component,
		id,
	)
	log.Printf(prefix+msg, args...)
}

// G version without task id (startup / shutdown logs).
func G(component, msg string, args ...any) {
	prefix := fmt.Sprintf("[%s][%s] ",
		time.Now().Format(time.RFC3339),
		component,
	)
	log.Printf(prefix+msg, args...)
}
