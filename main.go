package main

import "github.com/kcarline/hammock/cmd"

// TODO: checkpointing for chains (so a long run can freeze and resume) - which
//       means sampler state and adaptation state both need to serialize

func main() {
	cmd.Execute()
}
