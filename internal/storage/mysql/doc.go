// Package mysql contains the MySQL side of the dashboard job: the select-all
// reader for the CRM source database and the truncate-and-reload writer for the
// local reporting database. Both work on *sqlx.DB handles opened per cycle.
package mysql
