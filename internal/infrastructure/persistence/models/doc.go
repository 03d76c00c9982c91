// Package models holds the GORM rows for the sync_jobs and sync_histories
// tables. Domain types in syncjob carry no ORM tags; FromDomain and ToDomain
// convert at the repository boundary. Job metadata goes through GORM's JSON
// serializer.
package models
