// Package bpf holds the kernel-side tracer program and the generated
// bindings bpf2go produces from it.
//
// Regenerate with:
//
//	go generate ./bpf/...
//
// This requires clang/llvm-strip and a vmlinux.h for the target kernel
// on the build host (bpftool btf dump file /sys/kernel/btf/vmlinux
// format c > vmlinux.h); neither is checked in, since both are specific
// to the kernel the binary will run against.
package bpf

//go:generate go run github.com/cilium/ebpf/cmd/bpf2go -target bpfel -type bt_event_header -type bt_error buildtrace buildtrace.bpf.c -- -I.
