package models

// Status enumerates the states a [Resource] emission can carry.
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Resource is one emission on an asynchronous result stream.
//
// A stream emits Loading(true), zero or more Success values, then either Loading(false) or a terminal Error.
// Network is only populated on the Success that follows a remote fetch.
type Resource[T any] struct {
	Status     Status
	Loading    bool
	Data       T
	Network    T
	HasNetwork bool
	Message    string
	Err        error
}

// Loading reports a change of the in-flight state.
func Loading[T any](loading bool) Resource[T] {
	return Resource[T]{Status: StatusLoading, Loading: loading}
}

// Success carries data read from the local store.
func Success[T any](data T) Resource[T] {
	return Resource[T]{Status: StatusSuccess, Data: data}
}

// NetworkSuccess carries the reconciled local view together with the raw remote payload it was merged from.
func NetworkSuccess[T any](data, network T) Resource[T] {
	return Resource[T]{Status: StatusSuccess, Data: data, Network: network, HasNetwork: true}
}

// Failure is the terminal error emission.
func Failure[T any](message string, err error) Resource[T] {
	return Resource[T]{Status: StatusError, Message: message, Err: err}
}

// IsSuccess reports whether r carries data.
func (r Resource[T]) IsSuccess() bool { return r.Status == StatusSuccess }

// IsError reports whether r is a terminal error.
func (r Resource[T]) IsError() bool { return r.Status == StatusError }

// Final drains stream and returns the last Success together with the terminal error, if any.
//
// ok is false when the stream produced no Success.
func Final[T any](stream <-chan Resource[T]) (last Resource[T], ok bool, err error) {
	for r := range stream {
		switch r.Status {
		case StatusSuccess:
			last, ok = r, true
		case StatusError:
			err = r.Err
		}
	}
	return last, ok, err
}
