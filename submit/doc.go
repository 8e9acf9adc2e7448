// Package submit turns the command line of "hfjobs run" into a
// job submission request: it parses durations and environment
// variables and decides whether the image is a Docker image or a
// Hub Space.
package submit
