package common

// Key codes delivered to window key callbacks.
// Printable keys use their ASCII values, matching GLFW.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyP   = 80  // P key (ASCII)
	KeyR   = 82  // R key (ASCII)
	KeyEsc = 256 // Escape key (GLFW)

	Key1 = 49 // 1 key (ASCII)
	Key2 = 50 // 2 key (ASCII)
)
