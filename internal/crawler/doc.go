// Package crawler implements the fetch, classify, normalize and persist
// pipeline for the ncss student job listing API.
package crawler
