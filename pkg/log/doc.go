/*
Package log provides structured logging for buildmuxd using zerolog.

The log package wraps zerolog to provide JSON or console structured
logging with component-specific child loggers, configurable log
levels, and helper functions for common logging patterns.

# Usage

Initializing the logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component loggers:

	routerLog := log.WithComponent("mux-router")
	routerLog.Info().Int("max_node_count", 4).Msg("router bound")

Context loggers:

	recordLog := log.WithNodeID("node-abc123")
	recordLog.Info().Msg("build bracket opened")

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() for stack traces

Don't:
  - Log sensitive data (secrets, tokens)
  - Concatenate strings into the message (use .Str, .Int)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
