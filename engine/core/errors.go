package core

import (
	"errors"
)

var (
	// ErrDeviceLost is returned when the GPU device becomes unusable; fatal at the frame level.
	ErrDeviceLost = errors.New("gpu device lost")
	// ErrOutOfDeviceMemory is returned when a device buffer or pipeline allocation fails.
	ErrOutOfDeviceMemory = errors.New("out of device memory")
	// ErrShaderNotFound is returned when a shader name is not registered with the shader system.
	ErrShaderNotFound = errors.New("shader not found")
	ErrUnknown        = errors.New("unknown")
)
