// Package tgui holds small helpers for building Telegram HTML messages.
//
// Values of type H are already escaped and can be concatenated freely;
// plain strings must pass through Esc first.
package tgui
