/*
go-changedet is a toolkit for bi-temporal remote sensing change detection.
Given two co-registered images of the same geographic area captured at
different times it produces a pixel wise binary change map, vectorizes the
changed regions, and scores predictions against ground truth labels with
the confusion matrix metrics used in the change detection literature:
overall accuracy, per class and mean IoU, per class F1 and Cohen's kappa.

Neural change detection models run behind the model.Model interface.  A
classical change vector analysis implementation is included as a baseline.

See example code and usage in the example subdirectory.
*/
package changedet
