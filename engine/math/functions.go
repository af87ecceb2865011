package math

import (
	"encoding/binary"
	gomath "math"
)

func ksin(x float32) float32 { return float32(gomath.Sin(float64(x))) }
func kcos(x float32) float32 { return float32(gomath.Cos(float64(x))) }

func NewVec3Zero() Vec3 { return Vec3{} }
func NewVec3One() Vec3  { return Vec3{X: 1, Y: 1, Z: 1} }

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Bytes serializes the vector as 4 little-endian float32 components.
func (v Vec4) Bytes() []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint32(out[0:], gomath.Float32bits(v.X))
	binary.LittleEndian.PutUint32(out[4:], gomath.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(out[8:], gomath.Float32bits(v.Z))
	binary.LittleEndian.PutUint32(out[12:], gomath.Float32bits(v.W))
	return out
}

func NewQuatIdentity() Quaternion {
	return Quaternion{W: 1.0}
}

// NewQuatFromAxisAngle builds a quaternion rotating angle radians about axis.
func NewQuatFromAxisAngle(axis Vec3, angle float32, normalize bool) Quaternion {
	halfAngle := 0.5 * angle
	s := ksin(halfAngle)
	c := kcos(halfAngle)

	q := Quaternion{X: s * axis.X, Y: s * axis.Y, Z: s * axis.Z, W: c}
	if normalize {
		return q.Normalize()
	}
	return q
}

func (q Quaternion) Normalize() Quaternion {
	n := float32(gomath.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if n == 0 {
		return NewQuatIdentity()
	}
	return Quaternion{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}

func (q Quaternion) Mul(other Quaternion) Quaternion {
	return Quaternion{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// ToMat4 converts the quaternion to a rotation matrix.
func (q Quaternion) ToMat4() Mat4 {
	out := NewMat4Identity()

	// https://stackoverflow.com/questions/1556260/convert-quaternion-rotation-to-rotation-matrix
	n := float32(gomath.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
	if n == 0 {
		return out
	}
	x, y, z, w := q.X/n, q.Y/n, q.Z/n, q.W/n

	out.Data[0] = 1.0 - 2.0*y*y - 2.0*z*z
	out.Data[1] = 2.0*x*y - 2.0*z*w
	out.Data[2] = 2.0*x*z + 2.0*y*w

	out.Data[4] = 2.0*x*y + 2.0*z*w
	out.Data[5] = 1.0 - 2.0*x*x - 2.0*z*z
	out.Data[6] = 2.0*y*z - 2.0*x*w

	out.Data[8] = 2.0*x*z - 2.0*y*w
	out.Data[9] = 2.0*y*z + 2.0*x*w
	out.Data[10] = 1.0 - 2.0*x*x - 2.0*y*y

	return out
}

/**
 * @brief Creates and returns an identity matrix:
 *
 * {
 *   {1, 0, 0, 0},
 *   {0, 1, 0, 0},
 *   {0, 0, 1, 0},
 *   {0, 0, 0, 1}
 * }
 *
 * @return A new identity matrix
 */
func NewMat4Identity() Mat4 {
	outMatrix := Mat4{}
	outMatrix.Data[0] = 1.0
	outMatrix.Data[5] = 1.0
	outMatrix.Data[10] = 1.0
	outMatrix.Data[15] = 1.0
	return outMatrix
}

/**
 * @brief Returns the result of multiplying this matrix and other.
 *
 * @param other The matrix to be multiplied.
 * @return The result of the matrix multiplication.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	outMatrix := NewMat4Identity()

	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			outMatrix.Data[row*4+col] = sum
		}
	}

	return outMatrix
}

// Row returns the matrix row at the given index as a 4-component vector.
// Index must be in [0, 3].
func (mt Mat4) Row(index int) Vec4 {
	if index < 0 || index > 3 {
		panic("Mat4.Row: index out of range")
	}
	return Vec4{
		X: mt.Data[index*4+0],
		Y: mt.Data[index*4+1],
		Z: mt.Data[index*4+2],
		W: mt.Data[index*4+3],
	}
}

/**
 * @brief Returns a translation matrix for the provided position.
 *
 * @param position The 3-component translation.
 * @return A translation matrix.
 */
func NewMat4Translation(position Vec3) Mat4 {
	outMatrix := NewMat4Identity()
	outMatrix.Data[12] = position.X
	outMatrix.Data[13] = position.Y
	outMatrix.Data[14] = position.Z
	return outMatrix
}

/**
 * @brief Returns a scale matrix using the provided scale.
 *
 * @param scale The 3-component scale.
 * @return A scale matrix.
 */
func NewMat4Scale(scale Vec3) Mat4 {
	outMatrix := NewMat4Identity()
	outMatrix.Data[0] = scale.X
	outMatrix.Data[5] = scale.Y
	outMatrix.Data[10] = scale.Z
	return outMatrix
}

/**
 * @brief Creates a rotation matrix from the provided y angle.
 *
 * @param angleRadians The y angle in radians.
 * @return A rotation matrix.
 */
func NewMat4EulerY(angleRadians float32) Mat4 {
	outMatrix := NewMat4Identity()
	c := kcos(angleRadians)
	s := ksin(angleRadians)

	outMatrix.Data[0] = c
	outMatrix.Data[2] = -s
	outMatrix.Data[8] = s
	outMatrix.Data[10] = c
	return outMatrix
}

/**
 * @brief Creates and returns a perspective projection matrix.
 *
 * @param fovRadians The field of view in radians.
 * @param aspectRatio The aspect ratio.
 * @param nearClip The near clipping plane distance.
 * @param farClip The far clipping plane distance.
 * @return A new perspective projection matrix.
 */
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	halfTanFov := float32(gomath.Tan(float64(fovRadians) * 0.5))
	outMatrix := Mat4{}
	outMatrix.Data[0] = 1.0 / (aspectRatio * halfTanFov)
	outMatrix.Data[5] = 1.0 / halfTanFov
	outMatrix.Data[10] = -((farClip + nearClip) / (farClip - nearClip))
	outMatrix.Data[11] = -1.0
	outMatrix.Data[14] = -((2.0 * farClip * nearClip) / (farClip - nearClip))
	return outMatrix
}
