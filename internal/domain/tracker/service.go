package tracker

import "context"

// Operation names, also used as run-history and event labels.
const (
	OperationAbsences = "absences"
	OperationUsers    = "user_charts"
	OperationProjects = "project_charts"
)

// Service is the extraction orchestrator. Each call owns one browser session end to end and
// returns either a complete result or a single error, never partial data.
type Service interface {
	FindEntitiesWithoutActivity(ctx context.Context, creds Credentials, window DateWindow) (*AbsenceResult, error)
	CollectEntityChartSeries(ctx context.Context, creds Credentials, window DateWindow) (*ChartResult, error)
	CollectProjectChartSeries(ctx context.Context, creds Credentials, window DateWindow) (*ProjectChartResult, error)
}

// RunRepository persists the audit trail of orchestrated runs.
type RunRepository interface {
	Create(ctx context.Context, run *CheckRun) error
	GetByID(ctx context.Context, id string) (CheckRun, error)
	List(ctx context.Context, limit int) ([]CheckRun, error)
}

// RunService reads the run history.
type RunService interface {
	ListRuns(ctx context.Context, limit int) (ListRunsResponse, error)
	GetRun(ctx context.Context, id string) (CheckRun, error)
}
