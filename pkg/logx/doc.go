// Package logx is memberwatch's structured logger, a thin layer over zerolog.
//
// Console output is human-readable with a short caller; file output is JSON.
// Service.Apply swaps level and sinks without invalidating Loggers already
// handed out.
package logx
