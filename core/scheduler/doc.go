// Package scheduler places reschedulable appliance runs into the cheapest
// feasible slot of their runnable window. Placement is greedy: cheap zones
// are scanned before the rest of the window and the first fit wins.
package scheduler
