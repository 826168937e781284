// Package cactus binds the native cactus completion library. The handle it
// returns is an opaque resource: callers own exactly one, serialize access
// themselves, and destroy it exactly once.
package cactus

/*
#cgo LDFLAGS: -lcactus

#include <stdlib.h>

typedef struct cactus_model cactus_model_t;

extern cactus_model_t *cactus_init(const char *model_path, const char *corpus_dir, int cache_index);
extern int cactus_complete(cactus_model_t *model, const char *messages_json,
                           char *response_buffer, size_t buffer_size,
                           const char *options_json, const char *tools_json,
                           void *callback, void *user_data);
extern void cactus_destroy(cactus_model_t *model);
extern const char *cactus_get_last_error(void);
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Model is a loaded cactus model. It is not safe for concurrent use; the
// owning client must serialize calls.
type Model struct {
	ptr *C.cactus_model_t
}

// Init loads a model from disk. A nil native handle is reported as an
// initialization failure carrying the library's last error.
func Init(modelPath string) (*Model, error) {
	cPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cPath))
	cCorpus := C.CString("")
	defer C.free(unsafe.Pointer(cCorpus))

	ptr := C.cactus_init(cPath, cCorpus, 0)
	if ptr == nil {
		return nil, fmt.Errorf("cactus_init failed: %s", lastError())
	}
	return &Model{ptr: ptr}, nil
}

// Complete runs one blocking completion. messagesJSON and optionsJSON are
// passed through to the library; the response is read from a buffer of
// bufSize bytes. A negative return code is a failure carrying the library's
// last error.
func (m *Model) Complete(messagesJSON, optionsJSON string, bufSize int) (string, error) {
	if m == nil || m.ptr == nil {
		return "", fmt.Errorf("cactus model not initialized")
	}

	cMessages := C.CString(messagesJSON)
	defer C.free(unsafe.Pointer(cMessages))
	cOptions := C.CString(optionsJSON)
	defer C.free(unsafe.Pointer(cOptions))

	buf := (*C.char)(C.malloc(C.size_t(bufSize)))
	defer C.free(unsafe.Pointer(buf))

	ret := C.cactus_complete(m.ptr, cMessages, buf, C.size_t(bufSize), cOptions, nil, nil, nil)
	if ret < 0 {
		return "", fmt.Errorf("cactus_complete failed (ret=%d): %s", int(ret), lastError())
	}

	return C.GoString(buf), nil
}

// Close destroys the native handle. Safe on a nil or never-initialized
// model; a second call is a no-op.
func (m *Model) Close() {
	if m == nil || m.ptr == nil {
		return
	}
	C.cactus_destroy(m.ptr)
	m.ptr = nil
}

func lastError() string {
	ptr := C.cactus_get_last_error()
	if ptr == nil {
		return "unknown error"
	}
	return C.GoString(ptr)
}
