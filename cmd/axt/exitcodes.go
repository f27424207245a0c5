package main

// Exit codes returned by every axt command.
const (
	ExitSuccess         = 0 // Success
	ExitError           = 1 // General error (invalid arguments, runtime or network failure)
	ExitConfigError     = 2 // Configuration error (invalid config, unusable data directory)
	ExitDataError       = 3 // Data error (malformed import file, corrupt model, invalid PDF)
	ExitNotFound        = 4 // No paper with the given entry ID
	ExitModelNotTrained = 5 // Embedding model missing or from an older version
)
