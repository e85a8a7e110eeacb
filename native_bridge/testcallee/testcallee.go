//go:build cgo
// +build cgo

// Package testcallee provides C callees with known behaviour, used to
// exercise the native bridge from Go tests (test files cannot use cgo).
package testcallee

/*
#include <stdlib.h>
#include <string.h>

static char* echoCallee(int handle, char *args) {
	if (args == NULL) return NULL;
	return strdup(args);
}

static char* nullCallee(int handle, char *args) {
	return NULL;
}

static int doubleCallee(int handle, char *args, char *buffer) {
	return handle * 2;
}

static int copyCallee(int handle, char *args, char *buffer) {
	size_t n = strlen(args);
	if (n > (size_t)handle) return -(int)n;
	memcpy(buffer, args, n);
	return (int)n;
}

static int released;

static void countingRelease(char *ptr) {
	released++;
	free(ptr);
}

static int releasedCount(void) { return released; }

static void* echoCalleePtr(void) { return (void*)echoCallee; }
static void* nullCalleePtr(void) { return (void*)nullCallee; }
static void* doubleCalleePtr(void) { return (void*)doubleCallee; }
static void* copyCalleePtr(void) { return (void*)copyCallee; }
static void* countingReleasePtr(void) { return (void*)countingRelease; }
*/
import "C"

import "unsafe"

// Echo returns a callee that answers with a malloc'ed copy of its arguments.
func Echo() unsafe.Pointer { return C.echoCalleePtr() }

// Null returns a callee that always answers NULL.
func Null() unsafe.Pointer { return C.nullCalleePtr() }

// Double returns a status callee that answers handle*2.
func Double() unsafe.Pointer { return C.doubleCalleePtr() }

// Copy returns a status callee that copies its arguments into the buffer.
// The handle carries the buffer capacity; if the arguments do not fit the
// callee answers with the negated required size.
func Copy() unsafe.Pointer { return C.copyCalleePtr() }

// Release returns a release function that frees its argument and counts the
// calls, see Released.
func Release() unsafe.Pointer { return C.countingReleasePtr() }

// Released returns how often the function from Release has been called.
func Released() int { return int(C.releasedCount()) }
