// Package bookshelf implements a small book sharing service: member
// accounts with email activation, username and password recovery, and a
// catalog of per-user libraries with searchable books and favorites.
//
// The package exposes repositories backed by bun, command handlers that
// run each account flow inside a single transaction, and HTTP
// controllers for the go-router fiber adapter.
package bookshelf
