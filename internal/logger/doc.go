// Package logger wraps zap with a global sugared logger and context helpers.
//
// Commands attach a named logger to their context with WithName and every
// function below them logs through the context (Debugf, Infof, InfoKV,
// WarnKV, ErrorKV).
// The global level is atomic and can be changed at runtime with SetLevel.
package logger
