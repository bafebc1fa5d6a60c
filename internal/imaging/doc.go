// Package imaging turns raw generated images into the studio's fixed output
// format: an N x N JPEG at a fixed quality. Source width and height are
// scaled independently (stretch to fill) with a Catmull-Rom filter, so the
// output geometry never depends on the input's aspect ratio. Transparent
// pixels are flattened onto white.
package imaging
