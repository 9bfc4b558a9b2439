// Package main provides C-compatible functions for building a shared library.
// Build with: go build -buildmode=c-shared -o libabengine.so ./pkg/capi
//
// Results are JSON strings owned by the caller and released with
// abengine_free_string. Functions return 0 on success and -1 on failure;
// abengine_last_error describes the failure.
package main

/*
#include <stdlib.h>
#include <stdint.h>
*/
import "C"
import (
	"time"
	"unsafe"
)

//export abengine_version
func abengine_version() *C.char {
	return C.CString("0.1.0")
}

//export abengine_last_error
func abengine_last_error() *C.char {
	msg := getError()
	if msg == "" {
		return nil
	}
	return C.CString(msg)
}

//export abengine_init
func abengine_init(configDoc *C.char) C.int {
	var data string
	if configDoc != nil {
		data = C.GoString(configDoc)
	}
	if err := initEngine(data); err != nil {
		setError(err)
		return -1
	}
	setError(nil)
	return 0
}

//export abengine_shutdown
func abengine_shutdown() {
	shutdownEngine()
}

//export abengine_search
func abengine_search(game, position *C.char, depth C.int, resultJSON **C.char) C.int {
	out, err := searchJSON(C.GoString(game), C.GoString(position), int(depth))
	return respond(out, err, resultJSON)
}

//export abengine_iterate
func abengine_iterate(game, position *C.char, maxDepth, timeoutMS C.int, resultJSON **C.char) C.int {
	timeout := time.Duration(timeoutMS) * time.Millisecond
	out, err := iterateJSON(C.GoString(game), C.GoString(position), int(maxDepth), timeout)
	return respond(out, err, resultJSON)
}

//export abengine_clear_cache
func abengine_clear_cache() C.int {
	if err := clearCache(); err != nil {
		setError(err)
		return -1
	}
	setError(nil)
	return 0
}

//export abengine_free_string
func abengine_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func respond(out string, err error, resultJSON **C.char) C.int {
	if err != nil {
		setError(err)
		*resultJSON = C.CString(errorJSON(err))
		return -1
	}
	*resultJSON = C.CString(out)
	setError(nil)
	return 0
}

func main() {}
