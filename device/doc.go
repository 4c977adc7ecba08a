// SPDX-License-Identifier: EPL-2.0

// Package device connects the engine to real audio hardware: an oto
// player for output and a miniaudio (malgo) capture device for input.
//
// Building with the headless tag replaces both with stand-ins that always
// fail, leaving the engine degraded but usable.
package device
