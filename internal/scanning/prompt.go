package scanning

import "github.com/zombor/betslip-tracker/internal/betslip"

// betSlipPrompt is the shared prompt used by all LLM providers. The answer
// layout it demands is the one betslip.Extract parses.
const betSlipPrompt = `You are reading a photographed or screenshotted sports betting slip.

First, write down all the text you can read on the slip, in reading order.

Then write a line containing exactly:
` + betslip.Delimiter + `

After that line, answer with exactly these labelled lines, one per line, in this order:
ID:
Date:
Time:
Country:
Match League:
Home Team:
Away Team:
Staked Amount:
Potential Winning:
Bet Option Staked:
Odds of Bet Option Staked:
Total Odds:
Bet Status:

Rules:
- Put the value on the same line as its label, after ": ".
- If a value is not on the slip, leave it empty after the label.
- For slips with several selections, separate teams, options and odds of each selection with semicolons.
- Total Odds is the combined odds of the whole slip, as printed on it.
- Do not use markdown.`
