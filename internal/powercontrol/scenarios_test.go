// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"testing"
	"time"

	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// configureRestorePolicy pushes PowerRestorePolicy/PowerRestoreDelay through
// the same write-callback path the D-Bus property write would use.
func configureRestorePolicy(t *testing.T, h *testHarness, policy restorePolicy, delaySeconds uint16) {
	t.Helper()
	errCh := make(chan *dbusutil.Error, 2)
	h.manager.post(func() {
		_ = h.manager.hub.host.writeRestorePolicy(&dbusutil.PropertyWrite{Value: string(policy)})
		_ = h.manager.hub.host.writeRestoreDelay(&dbusutil.PropertyWrite{Value: delaySeconds})
	})
	_ = errCh
	waitQuiescent(h.manager)
}

// Scenario 1: cold AC boot with AlwaysOn restore policy powers on
// once the policy/delay configuration becomes available.
func TestScenario_ColdACBootAlwaysOn(t *testing.T) {
	h := newTestHarness(t, true /* acBoot */, false /* PS_PWROK */)
	assert.Equal(t, StateACLossOff, h.state())

	configureRestorePolicy(t, h, restorePolicyAlwaysOn, 0)
	time.Sleep(50 * time.Millisecond)
	waitQuiescent(h.manager)
	assert.Equal(t, StateWaitForPSPowerOK, h.state())

	h.setLine(linePSPwrOK, true)
	assert.Equal(t, StateWaitForSIOPowerGood, h.state())

	h.setLine(lineSIOPowerGood, true)
	assert.Equal(t, StateOn, h.state())
}

// computeInitialState: PS_PWROK already high at boot goes straight to On
// per the literal transition table (not WaitForSIOPowerGood), even when
// AC-loss was observed — the restore-policy engine never runs because the
// host was never off.
func TestScenario_ACLossWithPSPowerOkAlreadyHigh(t *testing.T) {
	h := newTestHarness(t, true /* acBoot */, true /* PS_PWROK */)
	assert.Equal(t, StateOn, h.state())
	// restorePolicy.run() was never invoked: the engine never subscribed for
	// a pending config update.
	assert.Nil(t, h.manager.hub.host.restoreCfgFn)
}

// Scenario: AlwaysOff restore policy leaves the host off after an AC-loss
// boot.
func TestScenario_ColdACBootAlwaysOff(t *testing.T) {
	h := newTestHarness(t, true, false)
	assert.Equal(t, StateACLossOff, h.state())

	configureRestorePolicy(t, h, restorePolicyAlwaysOff, 0)
	time.Sleep(50 * time.Millisecond)
	waitQuiescent(h.manager)
	assert.Equal(t, StateACLossOff, h.state())
}

// Scenario: Restore policy only powers on if the power-drop flag was set,
// i.e. the host was on when AC was lost.
func TestScenario_RestorePolicyHonorsPowerDropFlag(t *testing.T) {
	h := newTestHarness(t, true, false)
	require.NoError(t, h.manager.store.store())

	configureRestorePolicy(t, h, restorePolicyRestore, 0)
	time.Sleep(50 * time.Millisecond)
	waitQuiescent(h.manager)
	assert.Equal(t, StateWaitForPSPowerOK, h.state())
}

func TestScenario_RestorePolicySkipsWithoutPowerDropFlag(t *testing.T) {
	h := newTestHarness(t, true, false)
	require.NoError(t, h.manager.store.clear())

	configureRestorePolicy(t, h, restorePolicyRestore, 0)
	time.Sleep(50 * time.Millisecond)
	waitQuiescent(h.manager)
	assert.Equal(t, StateACLossOff, h.state())
}

// Scenario 2: graceful shutdown via the power button while On.
func TestScenario_GracefulShutdown(t *testing.T) {
	h := newTestHarness(t, false, true)
	require.Equal(t, StateOn, h.state())

	h.pressButton(buttonPower)
	assert.Equal(t, StateGracefulTransitionToOff, h.state())

	h.setLine(linePSPwrOK, false)
	assert.Equal(t, StateOff, h.state())
}

// Scenario 3: unplanned PS loss while On records power-drop and
// drops straight to Off.
func TestScenario_UnplannedPSLoss(t *testing.T) {
	h := newTestHarness(t, false, true)
	require.Equal(t, StateOn, h.state())

	h.setLine(linePSPwrOK, false)
	assert.Equal(t, StateOff, h.state())
	assert.True(t, h.manager.store.read())
}

// Scenario 4: a forced power-off request from On enters TransitionToOff
// and drives POWER_OUT active for FORCE_OFF_PULSE. The I²C fallback that
// follows an uninterrupted pulse is not exercised here.
func TestScenario_ForceOffFallback(t *testing.T) {
	h := newTestHarness(t, false, true)
	require.Equal(t, StateOn, h.state())

	h.requestTransition(EventPowerOffRequest)
	assert.Equal(t, StateTransitionToOff, h.state())
	assert.False(t, h.chip.get(linePowerOut)) // driven active (0) for FORCE_OFF_PULSE
}

// Scenario 5: a power cycle request pulses power off and, once PS_PWROK
// deasserts, enters CycleOff. The later POWER_CYCLE expiry and power-on
// pulse are not exercised here.
func TestScenario_PowerCycle(t *testing.T) {
	h := newTestHarness(t, false, true)
	require.Equal(t, StateOn, h.state())

	h.requestTransition(EventPowerCycleRequest)
	assert.Equal(t, StateTransitionToCycleOff, h.state())

	h.setLine(linePSPwrOK, false)
	assert.Equal(t, StateCycleOff, h.state())
}

// Scenario 6: a masked power button publishes ButtonPressed but
// never reaches the state machine.
func TestScenario_MaskedPowerButton(t *testing.T) {
	h := newTestHarness(t, false, true)
	require.Equal(t, StateOn, h.state())

	h.manager.post(func() {
		require.NoError(t, h.manager.masks.setMask(buttonPower, true))
	})
	waitQuiescent(h.manager)

	h.setLine(linePowerButton, false)
	assert.True(t, h.manager.hub.buttons[buttonPower].ButtonPressed)
	assert.Equal(t, StateOn, h.state())
}
