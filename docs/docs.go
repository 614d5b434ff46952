// Package docs registers the API description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "HouseholdPro Backend",
    "description": "Technician assignment for household service bookings",
    "version": "1.0"
  },
  "basePath": "/",
  "securityDefinitions": {
    "AdminKey": {"type": "apiKey", "in": "header", "name": "X-Admin-Key"}
  },
  "paths": {
    "/healthz": {"get": {"tags": ["health"], "summary": "Database health"}},
    "/api/bookings": {"get": {"tags": ["bookings"], "summary": "List bookings"}},
    "/api/bookings/{id}": {"get": {"tags": ["bookings"], "summary": "Booking details"}},
    "/api/bookings/{id}/audit": {"get": {"tags": ["bookings"], "summary": "Booking assignment history"}},
    "/api/employees": {"get": {"tags": ["employees"], "summary": "List employees"}},
    "/api/assignment/presets": {"get": {"tags": ["assignment"], "summary": "Assignment presets"}},
    "/api/bookings/{id}/assign": {"post": {"tags": ["assignment"], "summary": "Assign a booking", "security": [{"AdminKey": []}]}},
    "/api/bookings/{id}/unassign": {"post": {"tags": ["assignment"], "summary": "Unassign a booking", "security": [{"AdminKey": []}]}},
    "/api/debug/candidates": {"get": {"tags": ["debug"], "summary": "Dry-run candidate scoring", "security": [{"AdminKey": []}]}},
    "/api/import": {"post": {"tags": ["import"], "summary": "Import employees and bookings CSV", "security": [{"AdminKey": []}]}},
    "/api/process": {"post": {"tags": ["process"], "summary": "Assign all pending bookings", "security": [{"AdminKey": []}]}},
    "/api/runs/latest": {"get": {"tags": ["runs"], "summary": "Latest batch run", "security": [{"AdminKey": []}]}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
