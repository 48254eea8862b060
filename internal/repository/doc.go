// Package repository selects the store behind the labelflow services.
//
// Two implementations exist:
//   - postgres: pgx over PostgreSQL, schema managed by goose migrations
//   - sqlite: gorm over an embedded SQLite file, schema from AutoMigrate
//
// Both honor the same contracts. Claims rely on the (task_id,
// dataset_item_id) primary key, tag-set writes compare the task version,
// and machine suggestions never overwrite a human labeling.
package repository
