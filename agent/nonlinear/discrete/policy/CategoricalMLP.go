// Package policy implements neural-network policies over discrete
// action spaces
package policy

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/spec"
	"github.com/samuelfneumann/goppo/timestep"
	"github.com/samuelfneumann/goppo/utils/floatutils"
)

// CategoricalMLP implements a softmax policy over discrete actions,
// parameterized by a multi-layered perceptron. The network outputs the
// logit of each action; action probabilities are computed through the
// softmax function.
//
// In training mode, actions are sampled from the softmax distribution.
// In evaluation mode, the highest-logit action is taken, with ties
// broken randomly.
//
// A CategoricalMLP constructed with a batch size above 1 has no VM of
// its own: it exposes the log probability of externally-input actions
// in externally-input states as a graph node, so that a learner can
// attach a loss to it and drive the graph itself.
type CategoricalMLP struct {
	network.NeuralNet
	vm G.VM

	logits     *G.Node
	logitsVals G.Value

	logProbInputActions    *G.Node
	logProbInputActionsVal G.Value
	actionIndices          *G.Node

	batchForLogProb int
	numActions      int

	// Log probability of the action most recently returned by
	// SelectAction
	lastLogProb float64

	eval bool
	seed int64
	rng  *rand.Rand
}

// NewCategoricalMLP returns a new CategoricalMLP policy for the
// environment env. The batchForLogProb parameter determines the batch
// size of states and actions for which LogPdfOf computes log
// probabilities. Policies with a batch size of 1 select actions;
// policies with larger batch sizes are train policies driven by a
// learner.
func NewCategoricalMLP(env environment.Environment, batchForLogProb int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*network.Activation, init G.InitWFn,
	seed int64) (agent.LogPdfOfer, error) {
	if env.ActionSpec().Cardinality == spec.Continuous {
		return nil, fmt.Errorf("newCategoricalMLP: softmax policy cannot " +
			"be used with continuous actions")
	}

	features := env.ObservationSpec().Shape.Len()
	numActions := int(env.ActionSpec().UpperBound.AtVec(0)) + 1

	net, err := network.NewMultiHeadMLP(features, batchForLogProb,
		numActions, g, hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: could not create "+
			"policy network: %v", err)
	}

	return fromNetwork(net, seed)
}

// fromNetwork builds the log-probability computation of a
// CategoricalMLP on top of an existing logits network
func fromNetwork(net network.NeuralNet, seed int64) (*CategoricalMLP,
	error) {
	logits := net.Prediction()[0]

	// Log probability of actions input with LogPdfOf. Input actions
	// are one-hot encoded so that the logit of the selected action in
	// each row can be picked out with a sum along columns.
	actionIndices := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName(fmt.Sprintf("actionIndices_%d", logits.Shape()[0])),
	)
	logitsInputActions := G.Must(G.HadamardProd(actionIndices, logits))
	logitsInputActions = G.Must(G.Sum(logitsInputActions, 1))

	inputsLogSumExp := logSumExp(logits, 1)
	logProbInputActions := G.Must(G.Sub(logitsInputActions, inputsLogSumExp))

	source := rand.NewSource(seed)

	pol := &CategoricalMLP{
		NeuralNet: net,
		logits:    logits,

		actionIndices:       actionIndices,
		logProbInputActions: logProbInputActions,

		batchForLogProb: net.BatchSize(),
		numActions:      net.Outputs(),

		seed: seed,
		rng:  rand.New(source),
	}
	G.Read(pol.logits, &pol.logitsVals)
	G.Read(pol.logProbInputActions, &pol.logProbInputActionsVal)

	if pol.batchForLogProb == 1 {
		pol.vm = G.NewTapeMachine(net.Graph())
	}

	return pol, nil
}

// logSumExp numerically stably computes the log of the sum of
// exponentials of logits along the given axis
func logSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// SelectAction runs the policy network on the observation of t and
// returns an action. SelectAction may only be called on policies with
// a batch size of 1.
func (c *CategoricalMLP) SelectAction(t timestep.TimeStep) *mat.VecDense {
	if c.vm == nil {
		panic("selectAction: cannot select actions with batch policy")
	}

	obs := t.Observation.RawVector().Data

	if err := c.Network().SetInput(obs); err != nil {
		panic(fmt.Sprintf("selectAction: could not set input: %v", err))
	}
	if err := c.vm.RunAll(); err != nil {
		panic(fmt.Sprintf("selectAction: could not run policy: %v", err))
	}
	logits := c.logitsVals.Data().([]float64)
	c.vm.Reset()

	logProbs := logSoftmax(logits)

	var action int
	if c.eval {
		// Greedy action selection with random tie breaking
		actions := floatutils.ArgMax(logits...)
		action = actions[c.rng.Intn(len(actions))]
	} else {
		action = c.sample(logProbs)
	}
	c.lastLogProb = logProbs[action]

	return mat.NewVecDense(1, []float64{float64(action)})
}

// sample samples an action index from the categorical distribution
// described by logProbs
func (c *CategoricalMLP) sample(logProbs []float64) int {
	u := c.rng.Float64()
	cdf := 0.0
	for i, logProb := range logProbs {
		cdf += math.Exp(logProb)
		if u < cdf {
			return i
		}
	}
	return len(logProbs) - 1
}

// LogProbSampled returns the log probability of the action most
// recently returned by SelectAction
func (c *CategoricalMLP) LogProbSampled() float64 {
	return c.lastLogProb
}

// LogPdfOf sets the states and actions for which the log probability
// computation of the policy's graph is performed. The log
// probabilities themselves are computed when the graph is next run.
func (c *CategoricalMLP) LogPdfOf(states, actions []float64) (*G.Node,
	error) {
	if len(actions) != c.batchForLogProb {
		return nil, fmt.Errorf("logPdfOf: illegal number of actions "+
			"\n\twant(%v)\n\thave(%v)", c.batchForLogProb, len(actions))
	}

	if err := c.Network().SetInput(states); err != nil {
		return nil, fmt.Errorf("logPdfOf: could not set states: %v", err)
	}

	// One-hot encode the actions
	actionIndices := make([]float64, 0, c.numActions*c.batchForLogProb)
	for i := range actions {
		row := make([]float64, c.numActions)
		row[int(actions[i])] = 1.0
		actionIndices = append(actionIndices, row...)
	}
	actionIndicesTensor := tensor.NewDense(tensor.Float64,
		[]int{c.batchForLogProb, c.numActions},
		tensor.WithBacking(actionIndices),
	)
	if err := G.Let(c.actionIndices, actionIndicesTensor); err != nil {
		return nil, fmt.Errorf("logPdfOf: could not set actions: %v", err)
	}

	return c.logProbInputActions, nil
}

// LogPdfNode returns the node that computes the log probability of
// input actions
func (c *CategoricalMLP) LogPdfNode() *G.Node {
	return c.logProbInputActions
}

// LogPdfVal returns the value of the node returned by LogPdfNode
func (c *CategoricalMLP) LogPdfVal() G.Value {
	return c.logProbInputActionsVal
}

// Logits returns the most recently computed action logits
func (c *CategoricalMLP) Logits() G.Value {
	return c.logitsVals
}

// Clone clones the CategoricalMLP to a new computational graph with
// the same batch size
func (c *CategoricalMLP) Clone() (agent.NNPolicy, error) {
	return c.CloneWithBatch(c.batchForLogProb)
}

// CloneWithBatch clones the CategoricalMLP to a new computational
// graph with a new batch size
func (c *CategoricalMLP) CloneWithBatch(batch int) (agent.NNPolicy, error) {
	net, err := c.Network().CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone "+
			"policy network: %v", err)
	}

	return fromNetwork(net, c.seed)
}

// Network returns the network of the CategoricalMLP
func (c *CategoricalMLP) Network() network.NeuralNet {
	return c.NeuralNet
}

// Eval sets the policy to evaluation mode
func (c *CategoricalMLP) Eval() { c.eval = true }

// Train sets the policy to training mode
func (c *CategoricalMLP) Train() { c.eval = false }

// IsEval returns whether the policy is in evaluation mode
func (c *CategoricalMLP) IsEval() bool { return c.eval }

// Close cleans up the policy's VM, if it has one
func (c *CategoricalMLP) Close() error {
	if c.vm == nil {
		return nil
	}
	return c.vm.Close()
}

// logSoftmax returns the log of the softmax of logits
func logSoftmax(logits []float64) []float64 {
	max := floatutils.Max(logits...)

	sumExp := 0.0
	for _, logit := range logits {
		sumExp += math.Exp(logit - max)
	}
	logSumExp := max + math.Log(sumExp)

	logProbs := make([]float64, len(logits))
	for i, logit := range logits {
		logProbs[i] = logit - logSumExp
	}
	return logProbs
}
