package models

import (
	"errors"
	"fmt"
)

// Option keys filled in by the capture scanner.
const (
	OptionIfName        = "if_name"
	OptionIfDescription = "if_description"
	OptionIfFilter      = "if_filter"
	OptionIfOS          = "if_os"
	OptionComment       = "opt_comment"
	OptionEpbFlags      = "epb_flags"
	OptionEpbHash       = "epb_hash"
	OptionEpbDropCount  = "epb_dropcount"
	OptionEpbPacketID   = "epb_packetid"
	OptionEpbQueue      = "epb_queue"
	OptionEpbVerdict    = "epb_verdict"
)

// ErrMissingOptionKey is returned when an option lookup misses.
var ErrMissingOptionKey = errors.New("option key not found")

// Options is an ordered multi-map. Keys keep the order of their first
// insertion and every key keeps its values in insertion order.
type Options struct {
	keys   []string
	values map[string][]string
}

// NewOptions returns an empty option set.
func NewOptions() *Options {
	return &Options{values: make(map[string][]string)}
}

// Add appends value to key.
func (o *Options) Add(key, value string) {
	if o.values == nil {
		o.values = make(map[string][]string)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = append(o.values[key], value)
}

// AddNonEmpty is Add that ignores empty values.
func (o *Options) AddNonEmpty(key, value string) {
	if value != "" {
		o.Add(key, value)
	}
}

// Len returns the number of distinct keys. A nil set is empty.
func (o *Options) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Options) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

// Values returns the values stored under key in insertion order.
func (o *Options) Values(key string) []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.values[key]...)
}

// First returns the first value stored under key.
func (o *Options) First(key string) (string, error) {
	if o == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingOptionKey, key)
	}
	vals, ok := o.values[key]
	if !ok || len(vals) == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingOptionKey, key)
	}
	return vals[0], nil
}
