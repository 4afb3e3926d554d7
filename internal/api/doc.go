// Package api serves the loan sensors over HTTP.
//
// Routes:
//
//	GET  /health
//	GET  /api/sensors
//	GET  /api/sensors/:id              (?q= filters items by title and author)
//	POST /api/sensors/:id/update       (throttled update, 502 with the error kind on failure)
//	GET  /api/sensors/:id/calendar.ics
//	GET  /api/metrics
//
// The :id parameter is the sensor's unique id ("voebb_12345678") or its entity id
// ("sensor.voebb_12345678").
package api
