// Package network implements neural networks on gorgonia
// computational graphs
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet implements a neural network on a gorgonia computational
// graph. A NeuralNet records its prediction node(s) so that separate
// loss terms can be attached to the graph by the agents that use it.
type NeuralNet interface {
	// Graph returns the computational graph that the network is
	// defined on
	Graph() *G.ExprGraph

	// Clone clones the network to a new computational graph with the
	// same input batch size
	Clone() (NeuralNet, error)

	// CloneWithBatch clones the network to a new computational graph
	// with a new input batch size
	CloneWithBatch(int) (NeuralNet, error)

	// BatchSize returns the number of observation vectors the network
	// takes as input at a time
	BatchSize() int

	// Features returns the number of features in a single observation
	// vector
	Features() int

	// Outputs returns the number of outputs predicted per observation
	Outputs() int

	// SetInput sets the value of the network's input node, which must
	// be constructed in row major order
	SetInput([]float64) error

	// Set sets the weights of the network to those of another network
	Set(NeuralNet) error

	// Learnables returns the learnable nodes of the network
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients
	Model() []G.ValueGrad

	// Output returns the value(s) of the network prediction node(s)
	// after the graph has been run
	Output() []G.Value

	// Prediction returns the node(s) of the computational graph that
	// store the network predictions
	Prediction() []*G.Node
}

// Set sets the weights of dest to the weights of source. The two
// networks must share the same architecture.
func Set(dest, source NeuralNet) error {
	return dest.Set(source)
}
