// Package service contains the business logic layer for labelflow.
//
// Services coordinate between handlers and repositories, implementing
// domain rules and orchestrating operations across multiple repositories.
//
// Services depend on repository interfaces defined in this package,
// following the dependency inversion principle. Repositories.Guarded wraps
// every store call with a timeout and a circuit breaker.
//
// # Services
//
//   - TagSetService: tag vocabulary edits with compare-and-swap retries
//   - SelectorService: next-item selection with atomic claims
//   - AnnotationService: human submissions
//   - SuggestionService: machine suggestions from the worker
//   - DatasetService, TaskService: administration and reporting
//
// # Thread Safety
//
// All services are designed to be safe for concurrent use from
// multiple goroutines. Coordination between callers happens in the store:
// tag-set writes compare versions, claims rely on the task item primary key.
package service
