// Package display renders job log events for the terminal. A
// Printer formats each event through a template with {timestamp}
// and {data} placeholders and writes one line per event.
package display
