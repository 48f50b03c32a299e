// Package classify decides which catalog columns hold translatable prose.
//
// Each non-empty cell is tested with LooksLikeProse; a column is text when
// strictly more than 60% of its non-empty cells pass. The decision is made
// once per column so every row of a column is treated alike.
package classify
