package handlers

// @title CannabisTrack API
// @version 1.0
// @description Inventory, sales and compliance audit tracking for licensed cannabis retail.
// @description Sales adjust product stock atomically; creates accept an Idempotency-Key header for safe offline replay.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @tag.name products
// @tag.description Product catalog and stock levels

// @tag.name sales
// @tag.description Sales recording and correction

// @tag.name audits
// @tag.description Compliance audits and discrepancies

// @tag.name settings
// @tag.description Application settings

// @tag.name reports
// @tag.description Dashboard figures and exports
