// Package ppo implements the Proximal Policy Optimization algorithm
// with a clipped surrogate objective and generalized advantage
// estimation. This implementation is adapted from:
//
// https://spinningup.openai.com/en/latest/algorithms/ppo.html
// https://github.com/openai/spinningup/blob/master/spinup/algos/tf1/ppo/ppo.py
package ppo

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/buffer/gae"
	"github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/network"
	ts "github.com/samuelfneumann/goppo/timestep"
)

// Note: when an epoch ends in the middle of an episode, the rest of
// the episode is played out with the updated policy but none of its
// data is stored. The next epoch starts fresh at the beginning of the
// next episode. Keeping the trailing data would be valid, since it is
// generated by the current policy, but most reference implementations
// throw it out and we follow that practice.

// logProbSampler is a policy that reports the log probability of the
// action it last selected. The behaviour policy of a PPO agent must
// implement this interface, since the importance ratio of the update
// compares new action log probabilities against those recorded at
// collection time.
type logProbSampler interface {
	agent.NNPolicy
	LogProbSampled() float64
}

// PPO implements the Proximal Policy Optimization algorithm. The
// policy update maximizes a clipped surrogate objective
//
//	E[min(r(θ)A, clip(r(θ), 1-ε, 1+ε)A)]
//
// where r(θ) is the ratio of the probability of an action under the
// current policy to its probability under the policy that collected
// the data. The state value critic is trained by regression on the
// rewards-to-go.
type PPO struct {
	// Policy
	behaviour         logProbSampler   // Has its own VM
	trainPolicy       agent.LogPdfOfer // Policy struct that is learned
	trainPolicySolver G.Solver
	trainPolicyVM     G.VM

	// Input nodes of the policy loss
	advantages  *G.Node
	oldLogProbs *G.Node

	policyLossVal  G.Value
	policySGDIters int

	buffer           *gae.Buffer
	epochLength      int
	currentEpochStep int
	completedEpochs  int
	eval             bool

	// finishingEpisode becomes true when the epoch's step quota is met
	// before the current episode ends. The rest of the episode is
	// played out, but its data is discarded.
	finishingEpisode        bool
	finishEpisodeOnEpochEnd bool

	prevStep ts.TimeStep

	// State value critic
	vValueFn             network.NeuralNet
	vVM                  G.VM
	vTrainValueFn        network.NeuralNet
	vTrainValueFnVM      G.VM
	vTrainValueFnTargets *G.Node
	vSolver              G.Solver
	valueLossVal         G.Value
	valueSGDIters        int

	// Statistics of the most recent update
	lastPolicyLoss float64
	lastValueLoss  float64
	lastApproxKL   float64
}

// New creates and returns a new PPO agent.
func New(env environment.Environment, c agent.Config, seed int64) (*PPO,
	error) {
	if !c.ValidAgent(&PPO{}) {
		return nil, fmt.Errorf("new: invalid configuration type: %T", c)
	}

	config, ok := c.(CategoricalMLPConfig)
	if !ok {
		return nil, fmt.Errorf("new: invalid configuration type: %T", c)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	features := env.ObservationSpec().Shape.Len()
	actionDims := env.ActionSpec().Shape.Len()
	buffer := gae.New(features, actionDims, config.EpochLength,
		config.Lambda, config.Gamma)

	// Prediction value function
	valueFn := config.vValueFn
	vVM := G.NewTapeMachine(valueFn.Graph())

	// Training value function and its MSE loss
	trainValueFn := config.vTrainValueFn

	trainValueFnTargets := G.NewMatrix(
		trainValueFn.Graph(),
		tensor.Float64,
		G.WithShape(trainValueFn.Prediction()[0].Shape()...),
		G.WithName("valueFnTargets"),
	)

	valueFnLoss := G.Must(G.Sub(trainValueFn.Prediction()[0],
		trainValueFnTargets))
	valueFnLoss = G.Must(G.Square(valueFnLoss))
	valueFnLoss = G.Must(G.Mean(valueFnLoss))

	p := &PPO{}
	G.Read(valueFnLoss, &p.valueLossVal)

	if _, err := G.Grad(valueFnLoss,
		trainValueFn.Learnables()...); err != nil {
		panic(err)
	}
	trainValueFnVM := G.NewTapeMachine(trainValueFn.Graph(),
		G.BindDualValues(trainValueFn.Learnables()...))

	// Behaviour policy selects actions and records their log
	// probabilities
	behaviour, ok := config.behaviour.(logProbSampler)
	if !ok {
		return nil, fmt.Errorf("new: behaviour policy (%T) does not "+
			"expose sampled log probabilities", config.behaviour)
	}

	// Training policy and the clipped surrogate objective
	trainPolicy := config.policy
	logProb := trainPolicy.LogPdfNode()
	g := trainPolicy.Network().Graph()

	advantages := G.NewVector(
		g,
		tensor.Float64,
		G.WithName("advantages"),
		G.WithShape(config.EpochLength),
	)
	oldLogProbs := G.NewVector(
		g,
		tensor.Float64,
		G.WithName("oldLogProbs"),
		G.WithShape(config.EpochLength),
	)

	policyLoss := clippedSurrogate(logProb, oldLogProbs, advantages,
		config.Epsilon)
	G.Read(policyLoss, &p.policyLossVal)

	if _, err := G.Grad(policyLoss,
		trainPolicy.Network().Learnables()...); err != nil {
		panic(err)
	}
	trainPolicyVM := G.NewTapeMachine(trainPolicy.Network().Graph(),
		G.BindDualValues(trainPolicy.Network().Learnables()...))

	p.behaviour = behaviour
	p.trainPolicy = trainPolicy
	p.trainPolicyVM = trainPolicyVM
	p.trainPolicySolver = config.PolicySolver
	p.advantages = advantages
	p.oldLogProbs = oldLogProbs
	p.policySGDIters = config.PolicySGDIters

	p.vValueFn = valueFn
	p.vVM = vVM
	p.vTrainValueFn = trainValueFn
	p.vTrainValueFnTargets = trainValueFnTargets
	p.vTrainValueFnVM = trainValueFnVM
	p.vSolver = config.VSolver
	p.valueSGDIters = config.ValueSGDIters

	p.buffer = buffer
	p.epochLength = config.EpochLength
	p.finishEpisodeOnEpochEnd = config.FinishEpisodeOnEpochEnd

	return p, nil
}

// clippedSurrogate constructs the negated clipped surrogate objective
//
//	-mean(min(r*adv, clip(r, 1-ε, 1+ε)*adv))
//
// on the graph of logProb. Gorgonia has no elementwise min or clip
// ops, so both are built from comparison masks: Lt and Gt with
// retSame=true produce {0, 1}-valued tensors which select between the
// compared nodes.
func clippedSurrogate(logProb, oldLogProbs, advantages *G.Node,
	epsilon float64) *G.Node {
	ratio := G.Must(G.Exp(G.Must(G.Sub(logProb, oldLogProbs))))

	lower := G.NewConstant(1.0 - epsilon)
	upper := G.NewConstant(1.0 + epsilon)
	one := G.NewConstant(1.0)

	// clip(ratio, lower, upper) as a mask composition: each element is
	// below the interval, above it, or inside it.
	belowMask := G.Must(G.Lt(ratio, lower, true))
	aboveMask := G.Must(G.Gt(ratio, upper, true))
	insideMask := G.Must(G.Sub(one, G.Must(G.Add(belowMask, aboveMask))))

	clippedRatio := G.Must(G.HadamardProd(ratio, insideMask))
	clippedRatio = G.Must(G.Add(clippedRatio, G.Must(G.Mul(belowMask,
		lower))))
	clippedRatio = G.Must(G.Add(clippedRatio, G.Must(G.Mul(aboveMask,
		upper))))

	unclippedObj := G.Must(G.HadamardProd(ratio, advantages))
	clippedObj := G.Must(G.HadamardProd(clippedRatio, advantages))

	// min(a, b) = a*(a < b) + b*(1 - (a < b))
	minMask := G.Must(G.Lt(unclippedObj, clippedObj, true))
	obj := G.Must(G.HadamardProd(unclippedObj, minMask))
	complement := G.Must(G.Sub(one, minMask))
	obj = G.Must(G.Add(obj, G.Must(G.HadamardProd(clippedObj,
		complement))))

	loss := G.Must(G.Mean(obj))
	return G.Must(G.Neg(loss))
}

// SelectAction returns an action at the given timestep.
func (p *PPO) SelectAction(t ts.TimeStep) *mat.VecDense {
	if t != p.prevStep {
		panic("selectAction: timestep is different from that previously " +
			"recorded")
	}
	return p.behaviour.SelectAction(t)
}

// EndEpisode performs cleanup at the end of an episode.
func (p *PPO) EndEpisode() {
	p.finishingEpisode = false
}

// Eval sets the agent into evaluation mode
func (p *PPO) Eval() {
	p.eval = true
	p.behaviour.Eval()
}

// Train sets the agent into training mode
func (p *PPO) Train() {
	p.eval = false
	p.behaviour.Train()
}

// IsEval returns whether the agent is in evaluation mode
func (p *PPO) IsEval() bool { return p.eval }

// ObserveFirst observes and records information about the first
// timestep in an episode.
func (p *PPO) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		fmt.Fprintf(os.Stderr, "Warning: ObserveFirst() should only be "+
			"called on the first timestep (current timestep = %d)\n",
			t.Number)
	}
	p.prevStep = t
	return nil
}

// Observe observes and records any timestep other than the first
// timestep.
func (p *PPO) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if p.eval {
		p.prevStep = nextStep
		return nil
	}

	// Finish the current episode to end the epoch
	if p.finishingEpisode {
		p.prevStep = nextStep
		return nil
	}

	// State value of the previous step
	o := p.prevStep.Observation.RawVector().Data
	vT, err := p.predictValue(o)
	if err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	r := nextStep.Reward
	a := action.(*mat.VecDense).RawVector().Data
	logProb := p.behaviour.LogProbSampled()
	if err := p.buffer.Store(o, a, r, vT, logProb); err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	p.prevStep = nextStep
	o = nextStep.Observation.RawVector().Data

	p.currentEpochStep++
	epochEnded := p.currentEpochStep == p.epochLength
	if nextStep.Last() || epochEnded {
		if nextStep.TerminalEnd() {
			p.buffer.FinishPath(0.0)
		} else {
			// Timeout or epoch cutoff, bootstrap with the value of
			// the last state
			lastVal, err := p.predictValue(o)
			if err != nil {
				return fmt.Errorf("observe: %v", err)
			}
			p.buffer.FinishPath(lastVal)
			p.finishingEpisode = epochEnded && p.finishEpisodeOnEpochEnd
		}
	}
	return nil
}

// predictValue computes the state value prediction for obs using the
// prediction value function.
func (p *PPO) predictValue(obs []float64) (float64, error) {
	if err := p.vValueFn.SetInput(obs); err != nil {
		return 0, fmt.Errorf("predictValue: could not set input: %v", err)
	}
	if err := p.vVM.RunAll(); err != nil {
		return 0, fmt.Errorf("predictValue: could not run value "+
			"function: %v", err)
	}
	vT := p.vValueFn.Output()[0].Data().([]float64)
	p.vVM.Reset()
	if len(vT) != 1 {
		return 0, fmt.Errorf("predictValue: expected a single state " +
			"value prediction")
	}
	return vT[0], nil
}

// StorePath stores a completed trajectory in the agent's buffer. The
// obs slice holds one observation per timestep in row major order.
// The trajectory's last state is valued at lastVal when computing the
// advantage estimates; callers pass 0 for trajectories that ended in
// a terminal state and the predicted value of the last state for
// trajectories cut off by a timeout or a step quota.
func (p *PPO) StorePath(obs, actions, rewards, values,
	logProbs []float64, lastVal float64) error {
	features := len(obs) / len(rewards)
	actionDims := len(actions) / len(rewards)
	for i := range rewards {
		o := obs[i*features : (i+1)*features]
		a := actions[i*actionDims : (i+1)*actionDims]
		err := p.buffer.Store(o, a, rewards[i], values[i], logProbs[i])
		if err != nil {
			return fmt.Errorf("storePath: %v", err)
		}
		p.currentEpochStep++
	}
	p.buffer.FinishPath(lastVal)
	return nil
}

// Step updates the agent if an epoch has been completed. If the agent
// is in evaluation mode, this function simply returns.
func (p *PPO) Step() error {
	if p.currentEpochStep < p.epochLength || p.eval {
		return nil
	}
	return p.Update()
}

// Update performs the PPO update on the data currently stored in the
// buffer. The buffer must be full.
func (p *PPO) Update() error {
	obs, act, adv, ret, oldLogProb, err := p.buffer.Get()
	if err != nil {
		return fmt.Errorf("update: %v", err)
	}

	// Fix the inputs of the surrogate objective for this update
	advantagesTensor := tensor.NewDense(
		tensor.Float64,
		p.advantages.Shape(),
		tensor.WithBacking(adv),
	)
	if err := G.Let(p.advantages, advantagesTensor); err != nil {
		return fmt.Errorf("update: could not set advantages: %v", err)
	}
	oldLogProbsTensor := tensor.NewDense(
		tensor.Float64,
		p.oldLogProbs.Shape(),
		tensor.WithBacking(oldLogProb),
	)
	if err := G.Let(p.oldLogProbs, oldLogProbsTensor); err != nil {
		return fmt.Errorf("update: could not set old log "+
			"probabilities: %v", err)
	}

	// Policy updates. Each pass recomputes the importance ratio with
	// the current weights against the fixed old log probabilities.
	for i := 0; i < p.policySGDIters; i++ {
		if _, err := p.trainPolicy.LogPdfOf(obs, act); err != nil {
			return fmt.Errorf("update: %v", err)
		}
		if err := p.trainPolicyVM.RunAll(); err != nil {
			return fmt.Errorf("update: could not run policy update: %v",
				err)
		}
		err := p.trainPolicySolver.Step(p.trainPolicy.Network().Model())
		if err != nil {
			return fmt.Errorf("update: could not step policy solver: %v",
				err)
		}
		p.trainPolicyVM.Reset()
	}
	p.lastPolicyLoss = p.policyLossVal.Data().(float64)
	p.lastApproxKL = approxKL(oldLogProb,
		p.trainPolicy.LogPdfVal().Data().([]float64))

	// Value function updates
	for i := 0; i < p.valueSGDIters; i++ {
		trainValueFnTargetsTensor := tensor.NewDense(
			tensor.Float64,
			p.vTrainValueFnTargets.Shape(),
			tensor.WithBacking(ret),
		)
		err := G.Let(p.vTrainValueFnTargets, trainValueFnTargetsTensor)
		if err != nil {
			return fmt.Errorf("update: could not set value targets: %v",
				err)
		}
		if err := p.vTrainValueFnVM.RunAll(); err != nil {
			return fmt.Errorf("update: could not run value update: %v",
				err)
		}
		if err := p.vSolver.Step(p.vTrainValueFn.Model()); err != nil {
			return fmt.Errorf("update: could not step value solver: %v",
				err)
		}
		p.vTrainValueFnVM.Reset()
	}
	p.lastValueLoss = p.valueLossVal.Data().(float64)

	// Update the behaviour policy and the prediction value function
	network.Set(p.behaviour.Network(), p.trainPolicy.Network())
	network.Set(p.vValueFn, p.vTrainValueFn)
	p.completedEpochs++
	p.currentEpochStep = 0

	return nil
}

// approxKL estimates the KL divergence between the data-collection
// policy and the updated policy from their action log probabilities.
func approxKL(oldLogProbs, newLogProbs []float64) float64 {
	diff := make([]float64, len(oldLogProbs))
	for i := range diff {
		diff[i] = oldLogProbs[i] - newLogProbs[i]
	}
	return stat.Mean(diff, nil)
}

// Behaviour returns the agent's behaviour policy. Rollout workers
// clone this policy so that data collection can proceed concurrently
// with separate network copies.
func (p *PPO) Behaviour() agent.NNPolicy {
	return p.behaviour
}

// ValueFn returns the agent's prediction value function. Rollout
// workers clone this network to value states at collection time.
func (p *PPO) ValueFn() network.NeuralNet {
	return p.vValueFn
}

// EpochLength returns the number of timesteps the agent consumes per
// update.
func (p *PPO) EpochLength() int { return p.epochLength }

// CompletedEpochs returns the number of updates performed so far.
func (p *PPO) CompletedEpochs() int { return p.completedEpochs }

// PolicyLoss returns the surrogate objective loss of the most recent
// update.
func (p *PPO) PolicyLoss() float64 { return p.lastPolicyLoss }

// ValueLoss returns the value function loss of the most recent update.
func (p *PPO) ValueLoss() float64 { return p.lastValueLoss }

// ApproxKL returns the estimated KL divergence between the policies
// before and after the most recent update.
func (p *PPO) ApproxKL() float64 { return p.lastApproxKL }

// TdError implements the Agent interface; it always panics.
func (p *PPO) TdError(ts.Transition) float64 {
	panic("tderror: not implemented")
}

// Close cleans up the agent's resources.
func (p *PPO) Close() error {
	p.trainPolicyVM.Close()
	p.vVM.Close()
	p.vTrainValueFnVM.Close()
	return p.behaviour.Close()
}
