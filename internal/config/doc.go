// Package config loads the cron job configuration: the local reporting
// database (top-level MYSQL_* keys), the source dashboard database
// (DASHBOARD_DB), and the optional scheduler, logging, metrics, lease and
// notification sections.
package config
