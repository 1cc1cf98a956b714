// Package matching decides which track on the target catalog a source title refers to.
//
// Matching is three pure steps:
//
//  1. [Normalize] strips decorative noise ("(Official Video)", "[HD]", "feat. ...") from a raw
//     title and splits it into an artist and a track on the first " - ".
//  2. [Similarity] scores two strings in [0, 1] with the Ratcliff/Obershelp ratio.
//  3. [Ranker] scores every search candidate against the normalized query
//     (0.6 title + 0.4 artist) and accepts the first strictly highest one above the threshold.
//
// Nothing in this package performs I/O.
package matching
