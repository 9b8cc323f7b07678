package evm

import (
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
)

// Minimal ABIs of the deployed DopeDAO governor, its Compound timelock and
// the DOPE loot. Only what the harness calls is listed.
const governorABIJSON = `[
{"type":"function","name":"propose","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"signatures","type":"string[]"},{"name":"calldatas","type":"bytes[]"},{"name":"description","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"castVote","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"},{"name":"support","type":"uint8"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"queue","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[]},
{"type":"function","name":"execute","stateMutability":"payable","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[]},
{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[]},
{"type":"function","name":"__acceptAdmin","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"state","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"proposals","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"id","type":"uint256"},{"name":"proposer","type":"address"},{"name":"eta","type":"uint256"},{"name":"startBlock","type":"uint256"},{"name":"endBlock","type":"uint256"},{"name":"forVotes","type":"uint256"},{"name":"againstVotes","type":"uint256"},{"name":"abstainVotes","type":"uint256"},{"name":"canceled","type":"bool"},{"name":"executed","type":"bool"}]},
{"type":"function","name":"getActions","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"signatures","type":"string[]"},{"name":"calldatas","type":"bytes[]"}]},
{"type":"function","name":"getReceipt","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"},{"name":"voter","type":"address"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"hasVoted","type":"bool"},{"name":"support","type":"uint8"},{"name":"votes","type":"uint96"}]}]},
{"type":"function","name":"votingDelay","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"quorumVotes","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"event","name":"ProposalCreated","anonymous":false,"inputs":[{"name":"proposalId","type":"uint256","indexed":false},{"name":"proposer","type":"address","indexed":false},{"name":"targets","type":"address[]","indexed":false},{"name":"values","type":"uint256[]","indexed":false},{"name":"signatures","type":"string[]","indexed":false},{"name":"calldatas","type":"bytes[]","indexed":false},{"name":"startBlock","type":"uint256","indexed":false},{"name":"endBlock","type":"uint256","indexed":false},{"name":"description","type":"string","indexed":false}]}
]`

const timelockABIJSON = `[
{"type":"function","name":"admin","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"delay","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"queueTransaction","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"signature","type":"string"},{"name":"data","type":"bytes"},{"name":"eta","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
{"type":"function","name":"executeTransaction","stateMutability":"payable","inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"signature","type":"string"},{"name":"data","type":"bytes"},{"name":"eta","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]}
]`

const lootABIJSON = `[
{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

var (
	GovernorMetaData = bind.MetaData{ABI: governorABIJSON, ID: "DopeDAO"}
	TimelockMetaData = bind.MetaData{ABI: timelockABIJSON, ID: "Timelock"}
	LootMetaData     = bind.MetaData{ABI: lootABIJSON, ID: "Loot"}
)

func mustParseABI(meta *bind.MetaData) abi.ABI {
	parsed, err := meta.ParseABI()
	if err != nil {
		panic(errors.New("invalid ABI: " + err.Error()))
	}
	return *parsed
}

var (
	governorABI = mustParseABI(&GovernorMetaData)
	timelockABI = mustParseABI(&TimelockMetaData)
	lootABI     = mustParseABI(&LootMetaData)
)
