// Package myaudio derives the upload content type of a sound and inspects
// WAV payloads for reporting. It never transcodes: the bytes fetched from the
// object store are uploaded unchanged.
package myaudio
