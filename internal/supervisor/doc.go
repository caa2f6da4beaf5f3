// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package supervisor runs Marquee's long-lived services under suture v4.

# Tree

	root ("marquee")
	├── data-layer
	│   └── RecommendService   startup load, retrain loop, weight checkpoints
	└── api-layer
	    └── HTTPServerService  ops router

A service that returns an error is restarted with backoff. A failure in the
api layer never restarts training and the other way round.

# Logging

Supervisor events are written through sutureslog into an slog.Logger. Pass
logging.NewSlogLogger() to route them into the zerolog output.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(recommendSvc)
	tree.AddAPIService(httpSvc)
	return tree.Serve(ctx)

The service wrappers live in the services subpackage.
*/
package supervisor
