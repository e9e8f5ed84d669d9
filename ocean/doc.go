// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package ocean implements the math behind the projected-grid ocean surface.
//
// The renderer draws the ocean without a CPU-side vertex buffer: the vertex
// shader derives every vertex from its index. This package is the CPU
// reference of that vertex program. It is used by the renderer to pack the
// uniform block and build the shared grid index list, by tests to pin the
// behavior of the shader, and by applications that need wave heights on the
// CPU (buoyancy, camera collision).
//
// Per vertex the generator:
//
//  1. decodes row and column from the linear vertex index;
//  2. maps the cell's (u, v) into view-space NDC extended by adaptive
//     overscan margins (see [AdaptiveMargins]);
//  3. builds a camera-relative view ray from FOV, aspect, yaw and pitch
//     (see [ViewRay]) and casts it against the y=0 plane from a grid-snapped
//     origin (see [SnapOrigin], [IntersectPlane]);
//  4. pushes samples near overscanned edges outward;
//  5. displaces the flat sample by up to [MaxWaves] Gerstner waves and
//     derives the normal analytically (see [Displace]).
//
// Coordinate conventions: +Y is up, the camera looks down -Z at yaw=0,
// positive yaw turns toward +X and positive pitch looks up.
package ocean
