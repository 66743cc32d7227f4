package types

import "encoding/json"

// wireIndividual mirrors Individual for JSON transport. A dedicated
// wire type (rather than tagging Individual's own fields) keeps the
// wire contract explicit and independent from internal field naming.
type wireIndividual struct {
	DecisionVector []float64 `json:"decision_vector"`
	Velocity       []float64 `json:"velocity"`
	Fitness        float64   `json:"fitness"`
}

// EncodePopulation serializes a population's individuals into the
// self-delimiting byte stream broadcast on the publisher socket. The
// problem is never put on the wire (see SPEC_FULL.md §3): every island
// on a topic is expected to already hold an equivalent Problem
// instance locally.
//
// This follows the same codec this corpus's own transport layer uses
// for its wire messages: encoding/json, not a binary archive.
func EncodePopulation(pop *Population) ([]byte, error) {
	wire := make([]wireIndividual, len(pop.individuals))
	for i, ind := range pop.individuals {
		wire[i] = wireIndividual{
			DecisionVector: ind.DecisionVector,
			Velocity:       ind.Velocity,
			Fitness:        ind.Fitness,
		}
	}
	return json.Marshal(wire)
}

// DecodePopulation parses a byte stream produced by EncodePopulation
// and returns the individuals it carries. Decoding is independent of
// any local Problem; the caller splices the result into its own
// population via Population.Replace.
func DecodePopulation(data []byte) ([]Individual, error) {
	var wire []wireIndividual
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	individuals := make([]Individual, len(wire))
	for i, w := range wire {
		individuals[i] = Individual{
			DecisionVector: w.DecisionVector,
			Velocity:       w.Velocity,
			Fitness:        w.Fitness,
		}
	}
	return individuals, nil
}
