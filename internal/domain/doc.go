// Package domain contains the core business entities and types for labelflow.
//
// This package defines:
//   - Entity types (Dataset, DatasetItem, Task, TaskItem)
//   - The TagSet value and its pure transforms
//   - Input/output types for service operations
//
// # Design Philosophy
//
// Domain types are persistence-agnostic and represent the core
// business concepts independent of how they are stored or transmitted.
// A TagSet is never edited in place: every transform returns a new value
// and the caller persists it with a compare-and-swap on Task.Version.
//
// # Key Entities
//
//   - Dataset: A named collection of immutable text items
//   - Task: A labeling job over one dataset, owning the tag vocabulary
//   - TaskItem: The labeling of one dataset item within one task
//   - ItemPresentation: What an annotator is shown next
//
// # Naming Conventions
//
// Types ending in "Input" are used for create/update operations.
// Types ending in "Filter" are used for query operations.
package domain
