package app

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string

	// Backend selects the compilation backend by registered name. Empty
	// means no optimization: the graph executes as written.
	Backend string

	LogFormat   string
	LogLevel    string
	WorkerCount int
}
