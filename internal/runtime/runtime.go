package runtime

import (
	"database/sql"

	"github.com/ccastromar/sos-store-ops-system/internal/llm"
)

// Runtime agrupa el estado compartido que usan los health checks.
type Runtime struct {
	DefinitionsLoaded bool
	LLMClient         llm.LLMClient
	DB                *sql.DB
}
