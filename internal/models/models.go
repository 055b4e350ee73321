// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models defines the database records of the accounts service.
package models
